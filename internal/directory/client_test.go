package directory

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/outbound-campaigns/internal/errors"
	"github.com/unclebandit/outbound-campaigns/internal/model"
)

const testBaseURL = "https://directory.test"

func setupHTTPMock(t *testing.T) {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
}

func newTestClient() *Client {
	return NewClient(Config{BaseURL: testBaseURL + "/"}, nil)
}

func requireBearer(key string, resp httpmock.Responder) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("Authorization") != "Bearer "+key {
			return httpmock.NewStringResponse(http.StatusUnauthorized, `{"error":"bad key"}`), nil
		}
		return resp(req)
	}
}

func TestListAgents_Success(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder("GET", testBaseURL+"/list-agents",
		requireBearer("key_123", httpmock.NewStringResponder(http.StatusOK,
			`[{"agent_id":"agent_1","agent_name":"Sales"},{"agent_id":"agent_2","agent_name":"Support","voice_id":"x"}]`)))

	agents, err := newTestClient().ListAgents(context.Background(), "key_123")

	require.NoError(t, err)
	assert.Equal(t, []model.Agent{
		{ID: "agent_1", Name: "Sales"},
		{ID: "agent_2", Name: "Support"},
	}, agents)
}

func TestListPhoneNumbers_Success(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder("GET", testBaseURL+"/list-phone-numbers",
		requireBearer("key_123", httpmock.NewStringResponder(http.StatusOK,
			`[{"phone_number":"+15551234567","phone_number_pretty":"+1 (555) 123-4567","nickname":"Main"},
			  {"phone_number":"+15557654321","phone_number_pretty":"+1 (555) 765-4321"}]`)))

	numbers, err := newTestClient().ListPhoneNumbers(context.Background(), "key_123")

	require.NoError(t, err)
	require.Len(t, numbers, 2)
	assert.Equal(t, "+15551234567", numbers[0].Number)
	assert.Equal(t, "+1 (555) 123-4567 (Main)", numbers[0].Label())
	assert.Equal(t, "+1 (555) 765-4321", numbers[1].Label())
}

func TestList_EmptyArrayAndNull(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder("GET", testBaseURL+"/list-agents", httpmock.NewStringResponder(http.StatusOK, `null`))
	httpmock.RegisterResponder("GET", testBaseURL+"/list-phone-numbers", httpmock.NewStringResponder(http.StatusOK, `[]`))

	c := newTestClient()
	agents, err := c.ListAgents(context.Background(), "k")
	require.NoError(t, err)
	assert.NotNil(t, agents)
	assert.Empty(t, agents)

	numbers, err := c.ListPhoneNumbers(context.Background(), "k")
	require.NoError(t, err)
	assert.Empty(t, numbers)
}

func TestListAgents_ErrorStatus(t *testing.T) {
	setupHTTPMock(t)

	tests := []struct {
		name         string
		status       int
		unauthorized bool
	}{
		{"unauthorized", http.StatusUnauthorized, true},
		{"forbidden", http.StatusForbidden, true},
		{"server error", http.StatusBadGateway, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpmock.RegisterResponder("GET", testBaseURL+"/list-agents",
				httpmock.NewStringResponder(tt.status, `{"error":"nope"}`))

			_, err := newTestClient().ListAgents(context.Background(), "key")

			var dirErr *appErrors.DirectoryError
			require.True(t, errors.As(err, &dirErr))
			assert.Equal(t, tt.status, dirErr.StatusCode)
			assert.Equal(t, "/list-agents", dirErr.Endpoint)
			assert.Equal(t, tt.unauthorized, dirErr.Unauthorized())
		})
	}
}

func TestListAgents_InvalidJSON(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder("GET", testBaseURL+"/list-agents", httpmock.NewStringResponder(http.StatusOK, `<html>`))

	_, err := newTestClient().ListAgents(context.Background(), "key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestListAgents_TransportError(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder("GET", testBaseURL+"/list-agents", httpmock.NewErrorResponder(errors.New("connection reset")))

	_, err := newTestClient().ListAgents(context.Background(), "key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestList_EmptyKeyMakesNoRequest(t *testing.T) {
	setupHTTPMock(t)

	_, err := newTestClient().ListAgents(context.Background(), "")
	require.ErrorIs(t, err, errMissingAPIKey)
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{}, nil)
	assert.Equal(t, DefaultConfig().BaseURL, c.config.BaseURL)
	assert.Zero(t, c.httpClient.Timeout)
}
