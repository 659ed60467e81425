package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortedKeys(t *testing.T) {
	obj := Object{"b": Int(2), "a": Int(1), "c": Null{}}

	got, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"c":null}`, string(got))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	got, err := MarshalCanonical(String("<a>&</a>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a>&</a>"`, string(got))
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	// "é" as e + combining acute (NFD) must serialize identically to
	// precomposed "é" (NFC). Root-call keys depend on this.
	nfd := String("é")
	nfc := String("é")

	gotNFD, err := MarshalCanonical(nfd)
	require.NoError(t, err)
	gotNFC, err := MarshalCanonical(nfc)
	require.NoError(t, err)
	assert.Equal(t, string(gotNFC), string(gotNFD))
}

func TestMarshalCanonical_RejectsUndefined(t *testing.T) {
	_, err := MarshalCanonical(Undefined{})
	assert.Error(t, err)

	_, err = MarshalCanonical(Array{String("ok"), Undefined{}})
	assert.Error(t, err)
}

func TestMarshalCanonical_Deterministic(t *testing.T) {
	obj := MustDecode(`{"z":[1,2.5,true],"a":{"nested":"x"}}`)

	first, err := MarshalCanonical(obj)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalCanonical(obj)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}
