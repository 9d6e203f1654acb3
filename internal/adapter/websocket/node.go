package websocket

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/centrifugal/centrifuge"
	"github.com/pscheid92/worldnovel/internal/adapter/metrics"
)

// FeedChannel carries every committed novel event. Clients are subscribed to it on connect.
const FeedChannel = "novel:feed"

const redisPrefix = "worldnovel"

func NewNode(logLevel string, m *metrics.FeedMetrics) (*centrifuge.Node, error) {
	conf := centrifuge.Config{LogLevel: parseCentrifugeLogLevel(logLevel), LogHandler: slogHandler}
	node, err := centrifuge.New(conf)
	if err != nil {
		return nil, fmt.Errorf("create centrifuge node: %w", err)
	}

	node.OnConnecting(onConnecting)
	node.OnConnect(onConnect(m))

	return node, nil
}

// onConnecting accepts anonymous readers. The identity, if the HTTP layer attached one,
// is only carried along for logging.
func onConnecting(ctx context.Context, _ centrifuge.ConnectEvent) (centrifuge.ConnectReply, error) {
	userID := ""
	if cred, ok := centrifuge.GetCredentials(ctx); ok {
		userID = cred.UserID
	}

	reply := centrifuge.ConnectReply{
		Credentials: &centrifuge.Credentials{UserID: userID},
		Subscriptions: map[string]centrifuge.SubscribeOptions{
			FeedChannel: {},
		},
	}
	return reply, nil
}

func onConnect(m *metrics.FeedMetrics) func(client *centrifuge.Client) {
	return func(client *centrifuge.Client) {
		slog.Debug("Feed client connected", "client_id", client.ID(), "identity", client.UserID())

		if m != nil {
			m.ActiveConnections.Inc()
		}

		client.OnSubscribe(func(e centrifuge.SubscribeEvent, cb centrifuge.SubscribeCallback) {
			if e.Channel != FeedChannel {
				cb(centrifuge.SubscribeReply{}, centrifuge.ErrorPermissionDenied)
				return
			}
			cb(centrifuge.SubscribeReply{}, nil)
		})

		client.OnDisconnect(func(e centrifuge.DisconnectEvent) {
			slog.Debug("Feed client disconnected", "client_id", client.ID(), "reason", e.Reason)
			if m != nil {
				m.ActiveConnections.Dec()
			}
		})
	}
}

// SetupRedis switches the node to a Redis broker so every instance behind a load
// balancer delivers events published by any other instance.
func SetupRedis(node *centrifuge.Node, redisURL string) error {
	shard, err := centrifuge.NewRedisShard(node, centrifuge.RedisShardConfig{Address: redisURL})
	if err != nil {
		return fmt.Errorf("create redis shard: %w", err)
	}

	brokerConfig := centrifuge.RedisBrokerConfig{Prefix: redisPrefix, Shards: []*centrifuge.RedisShard{shard}}
	broker, err := centrifuge.NewRedisBroker(node, brokerConfig)
	if err != nil {
		return fmt.Errorf("create redis broker: %w", err)
	}
	node.SetBroker(broker)

	return nil
}

func slogHandler(entry centrifuge.LogEntry) {
	attrs := make([]any, 0, len(entry.Fields)*2)
	for k, v := range entry.Fields {
		attrs = append(attrs, k, v)
	}
	switch entry.Level {
	case centrifuge.LogLevelTrace, centrifuge.LogLevelDebug:
		slog.Debug(entry.Message, attrs...)
	case centrifuge.LogLevelInfo:
		slog.Info(entry.Message, attrs...)
	case centrifuge.LogLevelWarn:
		slog.Warn(entry.Message, attrs...)
	case centrifuge.LogLevelError:
		slog.Error(entry.Message, attrs...)
	case centrifuge.LogLevelNone:
	}
}

func parseCentrifugeLogLevel(level string) centrifuge.LogLevel {
	switch level {
	case "debug":
		return centrifuge.LogLevelDebug
	case "warn", "warning":
		return centrifuge.LogLevelWarn
	case "error":
		return centrifuge.LogLevelError
	default:
		return centrifuge.LogLevelInfo
	}
}
