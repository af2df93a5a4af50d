package collab

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		f := &Frame{
			Type:      FrameUpdate,
			Content:   "hello world",
			UserID:    "user-1",
			UserName:  "Alice",
			Timestamp: 1700000000000,
		}
		data, err := f.Encode()
		require.NoError(t, err)

		decoded, err := DecodeFrame(data)
		require.NoError(t, err)
		assert.Equal(t, f.Type, decoded.Type)
		assert.Equal(t, f.Content, decoded.Content)
		assert.Equal(t, f.UserID, decoded.UserID)
		assert.Equal(t, f.Timestamp, decoded.Timestamp)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := DecodeFrame([]byte(`{"type": "update"`))
		require.Error(t, err)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := DecodeFrame([]byte(`{"type": "upsert"}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown frame type")
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := DecodeFrame([]byte(`{"content": "x"}`))
		require.Error(t, err)
	})

	t.Run("selection payload", func(t *testing.T) {
		decoded, err := DecodeFrame([]byte(`{"type":"selection_update","user_id":"u2","selection":{"start":3,"end":9,"text":"ipsum"}}`))
		require.NoError(t, err)
		require.NotNil(t, decoded.Selection)
		assert.Equal(t, 3, decoded.Selection.Start)
		assert.Equal(t, 9, decoded.Selection.End)
		assert.Equal(t, "ipsum", decoded.Selection.Text)
	})
}

func TestValidPosition(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		valid bool
	}{
		{"pixel shape", `{"x": 10.5, "y": 20}`, true},
		{"offset shape", `{"start": 0, "end": 4}`, true},
		{"null clears cursor", `null`, true},
		{"empty clears cursor", ``, true},
		{"x without y", `{"x": 10}`, false},
		{"start without end", `{"start": 3}`, false},
		{"wrong field types", `{"x": "ten", "y": "twenty"}`, false},
		{"not an object", `[1,2]`, false},
		{"garbage", `{{`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw json.RawMessage
			if tt.raw != "" {
				raw = json.RawMessage(tt.raw)
			}
			assert.Equal(t, tt.valid, ValidPosition(raw))
		})
	}
}
