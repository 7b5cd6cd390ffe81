package mqtt

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type Client struct {
	cli paho.Client
}

// Connect dials the broker and waits for the first connection.
// mqtt://, tcp://, ssl://, tls://, ws:// and wss:// URLs are accepted; user info
// in the URL is used as credentials.
func Connect(brokerURL, clientID string) (*Client, error) {
	raw := strings.TrimSpace(brokerURL)
	if raw == "" {
		raw = "mqtt://mosquitto:1883"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse broker url: %w", err)
	}

	opts := paho.NewClientOptions()
	server := u.Host
	switch u.Scheme {
	case "mqtt", "tcp", "":
		server = "tcp://" + server
	case "ssl", "tls":
		server = "ssl://" + server
	case "ws", "wss":
		server = u.Scheme + "://" + server + u.Path
	}
	opts.AddBroker(server)
	if strings.TrimSpace(clientID) == "" {
		clientID = "weather-sync"
	}
	// Each connection gets a unique id so reconnecting watch faces don't kick each other.
	opts.SetClientID(clientID + "-" + time.Now().Format("150405.000"))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	if u.User != nil {
		pw, _ := u.User.Password()
		opts.SetUsername(u.User.Username())
		opts.SetPassword(pw)
	}
	if u.Scheme == "ssl" || u.Scheme == "tls" || u.Scheme == "wss" {
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true}) // TODO: load a CA bundle from config
	}
	opts.OnConnect = func(_ paho.Client) { slog.Info("mqtt connected", "broker", server) }
	opts.OnConnectionLost = func(_ paho.Client, err error) { slog.Warn("mqtt connection lost", "error", err) }

	c := paho.NewClient(opts)
	tok := c.Connect()
	if ok := tok.WaitTimeout(15 * time.Second); !ok {
		return nil, fmt.Errorf("mqtt connect to %s timed out", server)
	}
	if err := tok.Error(); err != nil {
		return nil, err
	}
	return &Client{cli: c}, nil
}

func (c *Client) PublishRetained(topic string, payload []byte) error {
	t := c.cli.Publish(topic, 1, true, payload)
	if t.Wait() && t.Error() != nil {
		return t.Error()
	}
	return nil
}

func (c *Client) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	t := c.cli.Subscribe(topic, 1, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if t.Wait() && t.Error() != nil {
		return t.Error()
	}
	slog.Info("mqtt subscribed", "topic", topic)
	return nil
}

func (c *Client) Unsubscribe(topic string) error {
	t := c.cli.Unsubscribe(topic)
	if t.Wait() && t.Error() != nil {
		return t.Error()
	}
	slog.Info("mqtt unsubscribed", "topic", topic)
	return nil
}

func (c *Client) Close() {
	if c == nil || c.cli == nil {
		return
	}
	c.cli.Disconnect(1000)
}
