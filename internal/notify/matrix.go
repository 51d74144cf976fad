package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"filesentry/internal/client"
	"filesentry/internal/event"

	"github.com/google/uuid"
)

const (
	DefaultMatrixTimeout     = 8 * time.Second
	DefaultMatrixMessageType = "m.notice"
)

// HTTPError is returned for non-2xx homeserver responses.
type HTTPError = client.HTTPError

type MatrixConfig struct {
	HomeserverURL string
	AccessToken   string
	RoomID        string
	Timeout       time.Duration
	VerifyTLS     bool
	MessageType   string
}

func (c MatrixConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(c.HomeserverURL) == "" {
		missing = append(missing, "homeserver URL")
	}
	if strings.TrimSpace(c.AccessToken) == "" {
		missing = append(missing, "access token")
	}
	if strings.TrimSpace(c.RoomID) == "" {
		missing = append(missing, "room id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("matrix sink: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// MatrixSink posts each event to a Matrix room. Failures are returned, never
// retried.
type MatrixSink struct {
	config MatrixConfig
	client *http.Client
	newTxn func() string
}

func NewMatrixSink(config MatrixConfig) (*MatrixSink, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultMatrixTimeout
	}
	if strings.TrimSpace(config.MessageType) == "" {
		config.MessageType = DefaultMatrixMessageType
	}
	return &MatrixSink{
		config: config,
		client: client.NewHTTPClient(config.Timeout, config.VerifyTLS),
		newTxn: uuid.NewString,
	}, nil
}

func (sink *MatrixSink) Deliver(ctx context.Context, scored event.Scored) error {
	if sink == nil {
		return errors.New("matrix sink unavailable")
	}
	message, err := buildRoomMessage(scored, sink.config.MessageType)
	if err != nil {
		return err
	}
	return client.SendRoomMessage(ctx, sink.client, sink.config.HomeserverURL, sink.config.AccessToken,
		sink.config.RoomID, sink.newTxn(), message)
}

func buildRoomMessage(scored event.Scored, messageType string) (client.RoomMessage, error) {
	pretty, err := json.MarshalIndent(scored, "", "  ")
	if err != nil {
		return client.RoomMessage{}, fmt.Errorf("encode event: %w", err)
	}
	return client.RoomMessage{
		MsgType:       messageType,
		Body:          scored.Line(),
		Format:        "org.matrix.custom.html",
		FormattedBody: "<pre>" + html.EscapeString(string(pretty)) + "</pre>",
	}, nil
}
