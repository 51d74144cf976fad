package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// RoomMessage is the m.room.message content sent to a Matrix room.
type RoomMessage struct {
	MsgType       string `json:"msgtype"`
	Body          string `json:"body"`
	Format        string `json:"format,omitempty"`
	FormattedBody string `json:"formatted_body,omitempty"`
}

// SendRoomMessage posts message to the room's send endpoint once. Any non-2xx
// status is returned as an *HTTPError.
func SendRoomMessage(ctx context.Context, client *http.Client, baseURL, token, roomID, txnID string, message RoomMessage) error {
	client = ensureClient(client)
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return errors.New("homeserver URL is required")
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return errors.New("room id is required")
	}
	if strings.TrimSpace(txnID) == "" {
		return errors.New("transaction id is required")
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode room message: %w", err)
	}

	endpoint := baseURL + "/_matrix/client/v3/rooms/" + url.PathEscape(roomID) +
		"/send/m.room.message/" + url.PathEscape(txnID)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build room message request failed: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	addToken(request, token)

	response, err := client.Do(request)
	if err != nil {
		return fmt.Errorf("room message request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return nil
	}
	return &HTTPError{StatusCode: response.StatusCode, Message: readErrorMessage(response)}
}
