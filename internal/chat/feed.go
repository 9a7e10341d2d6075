package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"eva-notify/pkg/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Feed é a fonte de mensagens novas das comunidades
type Feed interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription entrega mensagens em ordem de publicação. O canal fecha
// quando a inscrição cai ou Close é chamado.
type Subscription interface {
	Messages() <-chan models.ChatMessage
	Close() error
}

// RedisFeed escuta os canais <prefix><comunidade_id> via PSUBSCRIBE
type RedisFeed struct {
	rdb       *redis.Client
	prefix    string
	queueSize int
	logger    *zap.Logger
}

func NewRedisFeed(rdb *redis.Client, prefix string, queueSize int, logger *zap.Logger) *RedisFeed {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &RedisFeed{rdb: rdb, prefix: prefix, queueSize: queueSize, logger: logger}
}

// Subscribe cria a inscrição e espera a confirmação do servidor
func (f *RedisFeed) Subscribe(ctx context.Context) (Subscription, error) {
	pattern := f.prefix + "*"
	pubsub := f.rdb.PSubscribe(ctx, pattern)

	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", pattern, err)
	}

	f.logger.Info("📡 Inscrito no feed do chat", zap.String("pattern", pattern))

	subCtx, cancel := context.WithCancel(ctx)
	s := &redisSubscription{
		pubsub: pubsub,
		out:    make(chan models.ChatMessage, f.queueSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.listen(subCtx, f.prefix, f.logger)
	return s, nil
}

type redisSubscription struct {
	pubsub    *redis.PubSub
	out       chan models.ChatMessage
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func (s *redisSubscription) Messages() <-chan models.ChatMessage { return s.out }

func (s *redisSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		err = s.pubsub.Close()
		<-s.done
	})
	return err
}

// listen decodifica e repassa para a fila. Fila cheia bloqueia a leitura.
func (s *redisSubscription) listen(ctx context.Context, prefix string, logger *zap.Logger) {
	defer close(s.done)
	defer close(s.out)

	ch := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return

		case raw, ok := <-ch:
			if !ok {
				logger.Warn("⚠️ Feed do chat encerrado")
				return
			}

			msg, err := decodeMessage(raw, prefix)
			if err != nil {
				logger.Warn("⚠️ Mensagem de chat inválida no feed",
					zap.String("channel", raw.Channel),
					zap.Error(err),
				)
				continue
			}

			select {
			case s.out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

func decodeMessage(raw *redis.Message, prefix string) (models.ChatMessage, error) {
	var msg models.ChatMessage
	if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
		return msg, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.ID == 0 {
		return msg, fmt.Errorf("message without id")
	}

	// comunidade vem do canal quando o payload não traz
	if msg.CommunityID == 0 {
		id, err := strconv.ParseInt(strings.TrimPrefix(raw.Channel, prefix), 10, 64)
		if err != nil {
			return msg, fmt.Errorf("invalid channel %q: %w", raw.Channel, err)
		}
		msg.CommunityID = id
	}
	if msg.DeliveryState == "" {
		msg.DeliveryState = models.DeliveryPending
	}
	return msg, nil
}
