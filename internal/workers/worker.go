package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"eva-notify/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Worker interface que todos os workers devem implementar
type Worker interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// State é o estado de um worker entre ticks
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

var ErrAlreadyStarted = errors.New("worker manager already started")

type workerState struct {
	worker    Worker
	state     State
	runs      int64
	failures  int64
	lastRun   time.Time
	lastError string
}

// Manager gerencia múltiplos workers. Cada worker roda na sua própria
// goroutine, então uma execução nunca se sobrepõe à anterior do mesmo worker.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	workers []*workerState
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager cria o gerenciador; timeout limita cada execução
func NewManager(timeout time.Duration, logger *zap.Logger) *Manager {
	return &Manager{timeout: timeout, logger: logger}
}

// Register registra um novo worker. Deve ser chamado antes de Start.
func (m *Manager) Register(w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers = append(m.workers, &workerState{worker: w, state: StateIdle})
	m.logger.Info("✅ Worker registrado",
		zap.String("worker", w.Name()),
		zap.Duration("interval", w.Interval()),
	)
}

// Start inicia todos os workers registrados
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, m.cancel = context.WithCancel(ctx)

	m.logger.Info("🚀 Iniciando workers", zap.Int("count", len(m.workers)))

	for _, ws := range m.workers {
		m.wg.Add(1)
		go m.runWorker(ctx, ws)
	}
	return nil
}

func (m *Manager) runWorker(ctx context.Context, ws *workerState) {
	defer m.wg.Done()

	ticker := time.NewTicker(ws.worker.Interval())
	defer ticker.Stop()

	// Executar imediatamente na primeira vez
	m.execute(ctx, ws)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("🛑 Worker parado", zap.String("worker", ws.worker.Name()))
			return
		case <-ticker.C:
			m.execute(ctx, ws)
		}
	}
}

// execute roda uma unidade de trabalho com timeout, run id e métricas
func (m *Manager) execute(ctx context.Context, ws *workerState) {
	if ctx.Err() != nil {
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	name := ws.worker.Name()
	log := m.logger.With(zap.String("worker", name), zap.String("run_id", uuid.NewString()))

	m.setState(ws, StateRunning, nil)
	start := time.Now()

	err := ws.worker.Run(runCtx)
	duration := time.Since(start)

	metrics.ObserveWorkerRun(name, duration, err)
	m.setState(ws, StateIdle, err)

	if err != nil {
		log.Error("❌ Erro no worker", zap.Duration("duration", duration), zap.Error(err))
		return
	}
	log.Debug("worker executado", zap.Duration("duration", duration))
}

func (m *Manager) setState(ws *workerState, state State, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ws.state = state
	if state == StateRunning {
		ws.lastRun = time.Now()
		return
	}
	ws.runs++
	ws.lastError = ""
	if err != nil {
		ws.failures++
		ws.lastError = err.Error()
	}
}

// Stop cancela os workers e espera as execuções em andamento terminarem
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()

	if cancel == nil {
		return
	}

	m.logger.Info("🛑 Parando todos os workers...")
	cancel()
	m.wg.Wait()
	m.logger.Info("✅ Todos os workers parados")
}

// WorkerStat é o retrato de um worker
type WorkerStat struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	State     State         `json:"state"`
	Runs      int64         `json:"runs"`
	Failures  int64         `json:"failures"`
	LastRun   time.Time     `json:"last_run,omitempty"`
	LastError string        `json:"last_error,omitempty"`
}

// Stats retorna estatísticas dos workers
func (m *Manager) Stats() []WorkerStat {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := make([]WorkerStat, len(m.workers))
	for i, ws := range m.workers {
		stats[i] = WorkerStat{
			Name:      ws.worker.Name(),
			Interval:  ws.worker.Interval(),
			State:     ws.state,
			Runs:      ws.runs,
			Failures:  ws.failures,
			LastRun:   ws.lastRun,
			LastError: ws.lastError,
		}
	}
	return stats
}
