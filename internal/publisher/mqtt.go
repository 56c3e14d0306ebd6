package publisher

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-json-experiment/json"
	"github.com/google/uuid"

	"github.com/InfiniteAengus/vista-purdue-plot/internal/config"
	"github.com/InfiniteAengus/vista-purdue-plot/pkg/models"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 10 * time.Second
)

// Publisher announces written snapshots over MQTT so readers can pick up the
// CSV files as soon as they are replaced
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	outDir      string
}

// Payload is the retained message published for each snapshot
type Payload struct {
	ID        string    `json:"id"`
	Minute    time.Time `json:"minute"`
	WrittenAt time.Time `json:"written_at"`
	Dir       string    `json:"dir"`
	Files     []File    `json:"files"`
}

// File describes one CSV file of the snapshot
type File struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// New connects to the broker in mqttCfg
func New(mqttCfg config.MQTTConfig, outDir string) (*Publisher, error) {
	if !mqttCfg.Enabled {
		return nil, fmt.Errorf("MQTT publishing is not enabled in config")
	}
	if mqttCfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	// Set default topic prefix if not specified
	topicPrefix := mqttCfg.TopicPrefix
	if topicPrefix == "" {
		topicPrefix = "purdueplot"
	}

	// Configure MQTT client options
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", mqttCfg.Broker))
	opts.SetClientID("purdueplot-" + uuid.NewString()[:8])
	// Reconnect after a lost connection, but fail the first connect so an
	// unreachable broker is reported to the caller
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(connectTimeout)

	if mqttCfg.Username != "" {
		opts.SetUsername(mqttCfg.Username)
	}
	if mqttCfg.Password != "" {
		opts.SetPassword(mqttCfg.Password)
	}

	// Create and connect client
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout + time.Second) {
		client.Disconnect(0)
		return nil, fmt.Errorf("connecting to MQTT broker %s: timed out", mqttCfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", mqttCfg.Broker, err)
	}

	return &Publisher{
		client:      client,
		topicPrefix: topicPrefix,
		outDir:      outDir,
	}, nil
}

// Topic returns the topic snapshots are announced on
func Topic(prefix string) string {
	return prefix + "/snapshot"
}

// NewPayload builds the announcement for a snapshot
func NewPayload(sum models.SnapshotSummary, outDir string) Payload {
	return Payload{
		ID:        sum.ID,
		Minute:    sum.Minute.UTC(),
		WrittenAt: sum.CreatedAt.UTC(),
		Dir:       outDir,
		Files: []File{
			{Name: models.GreenLines.FileName(), Rows: sum.Green},
			{Name: models.YellowLines.FileName(), Rows: sum.Yellow},
			{Name: models.RedLines.FileName(), Rows: sum.Red},
			{Name: models.Dots.FileName(), Rows: sum.Dots},
		},
	}
}

// Publish sends a retained announcement for the snapshot
func (p *Publisher) Publish(sum models.SnapshotSummary) error {
	body, err := json.Marshal(NewPayload(sum, p.outDir))
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	token := p.client.Publish(Topic(p.topicPrefix), 1, true, body)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing snapshot %s: timed out", sum.ID)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing snapshot %s: %w", sum.ID, err)
	}

	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
