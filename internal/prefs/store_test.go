package prefs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeCounties(t *testing.T) {
	tests := []struct {
		name     string
		counties []int
		want     string
	}{
		{name: "empty", counties: nil, want: ""},
		{name: "single", counties: []int{5}, want: "5"},
		{name: "sorted and deduplicated", counties: []int{9, 5, 9, 1}, want: "1,5,9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, encodeCounties(tt.counties))
		})
	}
}

func TestDecodeCounties(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []int
	}{
		{name: "empty", raw: "", want: nil},
		{name: "whitespace only", raw: "  ", want: nil},
		{name: "single", raw: "5", want: []int{5}},
		{name: "multiple with spaces", raw: "1, 5 ,9", want: []int{1, 5, 9}},
		{name: "corrupt entries skipped", raw: "1,abc,5,,9", want: []int{1, 5, 9}},
		{name: "fully corrupt degrades to empty", raw: "not-a-list", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeCounties(tt.raw))
		})
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	counties, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, counties, "first use loads the empty set")

	require.NoError(t, store.Save(ctx, []int{9, 5}))

	counties, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 9}, counties)

	require.NoError(t, store.Save(ctx, nil))

	counties, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, counties)
}
