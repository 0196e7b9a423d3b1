package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, http.StatusPaymentRequired, "insufficient_funds", "insufficient funds", nil)

	assert.Equal(t, http.StatusPaymentRequired, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "insufficient_funds", body["code"])
	assert.NotContains(t, body, "details")
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	decode := func(body string) (payload, error) {
		var p payload
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		err := DecodeJSON(httptest.NewRecorder(), r, &p)
		return p, err
	}

	p, err := decode(`{"name":"x"}`)
	require.NoError(t, err)
	assert.Equal(t, "x", p.Name)

	_, err = decode(`{"name":"x","extra":1}`)
	assert.Error(t, err)
	_, err = decode(`{"name":"x"}{"name":"y"}`)
	assert.Error(t, err)
	_, err = decode(`not json`)
	assert.Error(t, err)
}
