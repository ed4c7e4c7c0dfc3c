package cac

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/frand"
)

func TestNewFixtures(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		address string
	}{
		{"empty", "", "b34ca8c22b9e982354f9c7f50b470d66db428d880c8a904d5fe4ec9713171526"},
		{"foo", "foo", "2387e8e7d8a48c2a9339c97c1dc3461a9a7aa07e994c5cb8b38fd7c1b3e6ea48"},
		{"write 7", "This is write number 7", "dd6ae3f5ba9d884f284732200139187325e5f57eddd7eace63a7fbd13b29f076"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.address, c.Address.String())
			assert.Equal(t, uint64(len(tt.payload)), c.Span.Length())
			assert.Equal(t, []byte(tt.payload), c.Data)
		})
	}
}

func TestSpanEncoding(t *testing.T) {
	c, err := New([]byte("This is write number 7"))
	require.NoError(t, err)
	require.Equal(t, Span{22, 0, 0, 0, 0, 0, 0, 0}, c.Span)
	require.Equal(t, append([]byte{22, 0, 0, 0, 0, 0, 0, 0}, "This is write number 7"...), c.Bytes())
}

func TestDeterminism(t *testing.T) {
	payload := frand.Bytes(1000)
	a, err := New(payload)
	require.NoError(t, err)
	b, err := New(payload)
	require.NoError(t, err)
	require.Equal(t, a.Address, b.Address)

	payload[0] ^= 0xff
	c, err := New(payload)
	require.NoError(t, err)
	require.NotEqual(t, a.Address, c.Address)
}

func TestNewCopiesPayload(t *testing.T) {
	payload := []byte("mutable")
	c, err := New(payload)
	require.NoError(t, err)
	payload[0] = 'M'
	require.Equal(t, []byte("mutable"), c.Data)
}

func TestPayloadTooLarge(t *testing.T) {
	_, err := New(make([]byte, MaxChunkSize))
	require.NoError(t, err)

	_, err = New(make([]byte, MaxChunkSize+1))
	require.True(t, errors.Is(err, ErrPayloadTooLarge))
}

func TestSpanBindsAddress(t *testing.T) {
	payload := []byte("foo")
	a, err := New(payload)
	require.NoError(t, err)
	b, err := NewWithSpan(4096, payload)
	require.NoError(t, err)
	require.NotEqual(t, a.Address, b.Address)
}

func TestValid(t *testing.T) {
	c, err := New([]byte("hello chunk"))
	require.NoError(t, err)
	require.NoError(t, Valid(c.Address, c.Bytes()))

	tampered := c.Bytes()
	tampered[len(tampered)-1] ^= 1
	require.ErrorIs(t, Valid(c.Address, tampered), ErrInvalidAddress)
	require.ErrorIs(t, Valid(c.Address, []byte{1, 2}), ErrTooShort)
}

func TestFromBytes(t *testing.T) {
	c, err := New([]byte("round trip"))
	require.NoError(t, err)
	parsed, err := FromBytes(c.Bytes())
	require.NoError(t, err)
	require.Equal(t, c, parsed)

	// a bare span is an empty chunk, not a nil one
	empty, err := FromBytes(make([]byte, SpanSize))
	require.NoError(t, err)
	require.NotNil(t, empty.Data)
	require.Empty(t, empty.Data)
}

func TestAddressText(t *testing.T) {
	c, err := New([]byte("foo"))
	require.NoError(t, err)
	text, err := c.Address.MarshalText()
	require.NoError(t, err)

	var a Address
	require.NoError(t, a.UnmarshalText(text))
	require.Equal(t, c.Address, a)
	require.NoError(t, a.UnmarshalText(append([]byte("0x"), text...)))
	require.Equal(t, c.Address, a)
	require.Error(t, a.UnmarshalText([]byte("abcd")))
}

func TestNewConcurrent(t *testing.T) {
	payload := frand.Bytes(MaxChunkSize)
	want, err := New(payload)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]Address, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, _ := New(payload)
			results[i] = c.Address
		}(i)
	}
	wg.Wait()
	for _, addr := range results {
		require.Equal(t, want.Address, addr)
	}
}
