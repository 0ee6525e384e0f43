// Package event_listener consumes the platform's finished-challenge feed
// and drives the reward engine with every batch it delivers.
package event_listener

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"detection-api/logging"
	"detection-api/platform"
	"detection-api/rewards"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	numWorkers            = 4
	initialReconnectDelay = time.Second
	maxReconnectDelay     = 30 * time.Second

	challengeFinishedTopic = "challenge.finished"
)

type EventListener struct {
	feedUrl  string
	modality rewards.Modality
	engine   *rewards.Engine
	reporter platform.WeightReporter

	mu sync.Mutex
	ws *websocket.Conn
}

func NewEventListener(feedUrl string, modality rewards.Modality, engine *rewards.Engine, reporter platform.WeightReporter) *EventListener {
	return &EventListener{
		feedUrl:  feedUrl,
		modality: modality,
		engine:   engine,
		reporter: reporter,
	}
}

// Start connects to the event feed and blocks until ctx is cancelled. The
// initial dial failing is fatal; read failures after that trigger
// reconnects with increasing delays.
func (el *EventListener) Start(ctx context.Context) error {
	if err := el.openWsConn(); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		el.closeConn()
	}()

	eventChan := make(chan *platform.ChallengeFinishedEvent, 100)
	defer close(eventChan)
	el.startWorkers(ctx, eventChan)

	return el.listen(ctx, eventChan)
}

func (el *EventListener) openWsConn() error {
	websocketUrl, err := getWebsocketUrl(el.feedUrl)
	if err != nil {
		return err
	}
	logging.Info("Connecting to event feed", logging.EventProcessing, "url", websocketUrl)

	ws, _, err := websocket.DefaultDialer.Dial(websocketUrl, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to event feed at %s: %w", websocketUrl, err)
	}
	if err := subscribeToEvents(ws, challengeFinishedTopic); err != nil {
		ws.Close()
		return err
	}

	el.mu.Lock()
	el.ws = ws
	el.mu.Unlock()
	return nil
}

func (el *EventListener) conn() *websocket.Conn {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.ws
}

func (el *EventListener) closeConn() {
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.ws != nil {
		el.ws.Close()
	}
}

func (el *EventListener) startWorkers(ctx context.Context, eventChan <-chan *platform.ChallengeFinishedEvent) {
	for i := 0; i < numWorkers; i++ {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case event, ok := <-eventChan:
					if !ok {
						return
					}
					if event == nil {
						logging.Error("Worker received nil event", logging.EventProcessing)
						continue
					}
					el.handleEvent(ctx, event)
				}
			}
		}()
	}
}

func (el *EventListener) listen(ctx context.Context, eventChan chan<- *platform.ChallengeFinishedEvent) error {
	delay := initialReconnectDelay
	for {
		_, message, err := el.conn().ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				el.closeConn()
				return nil
			}
			logging.Warn("Failed to read from event feed", logging.EventProcessing,
				"errorType", fmt.Sprintf("%T", err), "error", err)
			el.closeConn()

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			if delay *= 2; delay > maxReconnectDelay {
				delay = maxReconnectDelay
			}

			logging.Warn("Reconnecting to event feed", logging.EventProcessing)
			if err := el.openWsConn(); err != nil {
				logging.Error("Failed to reconnect to event feed", logging.EventProcessing, "error", err)
				continue
			}
			delay = initialReconnectDelay
			continue
		}

		var event platform.ChallengeFinishedEvent
		if err := json.Unmarshal(message, &event); err != nil {
			logging.Error("Error unmarshalling event feed message", logging.EventProcessing,
				"error", err, "message", string(message))
			continue
		}
		if len(event.UIDs) == 0 {
			logging.Debug("Skipping event without miners", logging.EventProcessing,
				"challengeId", event.ChallengeID)
			continue
		}

		eventChan <- &event
	}
}

func (el *EventListener) handleEvent(ctx context.Context, event *platform.ChallengeFinishedEvent) {
	challengeId := event.ChallengeID
	if challengeId == "" {
		challengeId = uuid.New().String()
	}
	modality := el.modality
	if event.Modality != "" {
		modality = rewards.Modality(event.Modality)
	}

	logging.Info("Scoring finished challenge", logging.EventProcessing,
		"challengeId", challengeId, "modality", modality, "miners", len(event.UIDs))

	outcomes := el.engine.Score(modality, event.Label, event.Predictions, event.UIDs, event.Hotkeys)
	if err := el.reporter.Report(ctx, modality, outcomes); err != nil {
		logging.Error("Failed to report weights", logging.EventProcessing,
			"challengeId", challengeId, "error", err)
	}
}

func subscribeToEvents(ws *websocket.Conn, topic string) error {
	subscribeMsg := fmt.Sprintf(`{"method": "subscribe", "topic": "%s"}`, topic)
	if err := ws.WriteMessage(websocket.TextMessage, []byte(subscribeMsg)); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	return nil
}

func getWebsocketUrl(feedUrl string) (string, error) {
	u, err := url.Parse(feedUrl)
	if err != nil {
		return "", fmt.Errorf("invalid event feed url %s: %w", feedUrl, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String(), nil
}
