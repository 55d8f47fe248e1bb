package handlers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDUnmarshal(t *testing.T) {
	tests := []struct {
		raw  string
		want ID
	}{
		{`42`, 42},
		{`"42"`, 42},
		{`" 7 "`, 7},
		{`3.0`, 3},
		{`"3.5"`, 0},
		{`""`, 0},
		{`"abc"`, 0},
		{`null`, 0},
		{`true`, 0},
		{`{}`, 0},
		{`-5`, -5},
	}
	for _, tt := range tests {
		var payload struct {
			ID ID `json:"id"`
		}
		require.NoError(t, json.Unmarshal([]byte(`{"id":`+tt.raw+`}`), &payload), tt.raw)
		require.Equal(t, tt.want, payload.ID, tt.raw)
	}
}

func TestToggleLikeResponseAlwaysCarriesIsLiked(t *testing.T) {
	data, err := json.Marshal(ToggleLikeResponse{Envelope: Envelope{Success: true, Message: "Post unliked."}})
	require.NoError(t, err)
	require.JSONEq(t, `{"success":true,"message":"Post unliked.","isLiked":false}`, string(data))
}
