package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhatsAppGateway_Send(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer wa-token", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer server.Close()

	gateway := NewWhatsAppGateway(HTTPConfig{APIURL: server.URL, APIToken: "wa-token", From: "5215500000000"})

	id, err := gateway.Send(context.Background(), Message{To: "+525512345678", Body: "hola"})
	require.NoError(t, err)
	assert.Equal(t, "wamid.1", id)
	assert.Equal(t, "525512345678", got["to"])
	assert.Equal(t, "5215500000000", got["from"])
	assert.Equal(t, "hola", got["text"].(map[string]interface{})["body"])
	assert.Equal(t, ChannelWhatsApp, gateway.Channel())
}

func TestWhatsAppGateway_SenderOverride(t *testing.T) {
	var got whatsAppRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"messages":[]}`))
	}))
	defer server.Close()

	gateway := NewWhatsAppGateway(HTTPConfig{APIURL: server.URL, From: "default"})

	_, err := gateway.Send(context.Background(), Message{To: "525512345678", From: "override", Body: "x"})
	require.NoError(t, err)
	assert.Equal(t, "override", got.From)
}

func TestEmailGateway_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer server.Close()

	gateway := NewEmailGateway(HTTPConfig{APIURL: server.URL, From: "bookings@example.com"})

	_, err := gateway.Send(context.Background(), Message{To: "ana@example.com", Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestEmailGateway_Send(t *testing.T) {
	var got emailRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"email-1"}`))
	}))
	defer server.Close()

	gateway := NewEmailGateway(HTTPConfig{APIURL: server.URL, From: "bookings@example.com"})

	id, err := gateway.Send(context.Background(), Message{To: "ana@example.com", Subject: "Booking", Body: "Thanks"})
	require.NoError(t, err)
	assert.Equal(t, "email-1", id)
	assert.Equal(t, []string{"ana@example.com"}, got.To)
	assert.Equal(t, "bookings@example.com", got.From)
}

func TestGateways_RequireRecipient(t *testing.T) {
	_, err := NewEmailGateway(HTTPConfig{}).Send(context.Background(), Message{})
	assert.Error(t, err)
	_, err = NewWhatsAppGateway(HTTPConfig{}).Send(context.Background(), Message{})
	assert.Error(t, err)
}

func TestLogGateway_Send(t *testing.T) {
	gateway := NewLogGateway(ChannelEmail, logrus.New())

	id, err := gateway.Send(context.Background(), Message{To: "ana@example.com", Body: "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, ChannelEmail, gateway.Channel())
}
