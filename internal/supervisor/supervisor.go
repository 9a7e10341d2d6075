// Package supervisor é o ponto único de start/stop dos jobs de notificação.
package supervisor

import (
	"context"
	"errors"
	"sync"
	"time"

	"eva-notify/internal/chat"
	"eva-notify/internal/config"
	"eva-notify/internal/scheduler"
	"eva-notify/internal/workers"

	"go.uber.org/zap"
)

const listenerBackoff = 5 * time.Second

var ErrAlreadyStarted = errors.New("supervisor already started")

// Store reúne o acesso a dados de todos os scanners
type Store interface {
	scheduler.TreatmentStore
	scheduler.AppointmentStore
	scheduler.ActivityStore
	scheduler.MessageStore
}

// Supervisor possui os scanners periódicos e o listener do chat
type Supervisor struct {
	manager  *workers.Manager
	listener *chat.Listener
	backoff  time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New registra todos os scanners. feed nil desliga o listener do chat;
// a reconciliação continua cobrindo as mensagens pendentes.
func New(cfg *config.Config, store Store, notifier scheduler.Notifier, processor chat.Processor, feed chat.Feed, logger *zap.Logger) *Supervisor {
	manager := workers.NewManager(cfg.JobTimeout, logger)
	manager.Register(scheduler.NewMedicationScanner(store, notifier, cfg.MedicationScanInterval, logger))
	manager.Register(scheduler.NewAppointmentScanner(store, notifier, cfg.AppointmentScanInterval, logger))
	manager.Register(scheduler.NewActivityScanner(store, notifier, cfg.ActivityScanInterval, logger))
	manager.Register(scheduler.NewChatReconciler(store, processor, cfg.ChatReconcileInterval, logger))

	s := &Supervisor{manager: manager, backoff: listenerBackoff, logger: logger}
	if feed != nil {
		s.listener = chat.NewListener(feed, processor, logger)
	}
	return s
}

// Start inicia as cadências e o listener do chat
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	if err := s.manager.Start(ctx); err != nil {
		cancel()
		return err
	}
	s.cancel = cancel

	if s.listener == nil {
		s.logger.Warn("⚠️ Feed do chat desativado, apenas reconciliação periódica")
	} else {
		s.wg.Add(1)
		go s.listen(ctx)
	}

	s.logger.Info("✅ Jobs de notificação iniciados")
	return nil
}

// listen mantém o listener vivo, reiniciando com backoff fixo
func (s *Supervisor) listen(ctx context.Context) {
	defer s.wg.Done()

	for {
		err := s.listener.Run(ctx)
		if ctx.Err() != nil {
			return
		}

		s.logger.Warn("⚠️ Listener do chat caiu, reiniciando",
			zap.Duration("backoff", s.backoff),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.backoff):
		}
	}
}

// Stop cancela tudo e espera as unidades de trabalho em andamento
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	s.manager.Stop()
	s.wg.Wait()
	s.logger.Info("✅ Jobs de notificação parados")
}

// Stats expõe o estado dos workers
func (s *Supervisor) Stats() []workers.WorkerStat {
	return s.manager.Stats()
}
