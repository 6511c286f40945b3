package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"care-relay/internal/domain"
	"care-relay/internal/llm"
	"care-relay/internal/render"
	"care-relay/internal/repository"
	"care-relay/internal/service"
	"care-relay/internal/storage"
)

type stubReportRepo struct {
	mu    sync.Mutex
	saved []domain.Report
}

func (s *stubReportRepo) Save(_ context.Context, report domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, report)
	return nil
}

func (s *stubReportRepo) GetByID(context.Context, string) (domain.Report, error) {
	return domain.Report{}, repository.ErrNotFound
}

func (s *stubReportRepo) ListByPatientID(context.Context, string) ([]domain.Report, error) {
	return nil, nil
}

func (s *stubReportRepo) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func (s *stubReportRepo) first() domain.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved[0]
}

func newTestServer(t *testing.T, model llm.Client) (*httptest.Server, *stubReportRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	store := repository.NewMemoryConversationStore()
	builder := service.NewContextBuilder(store, 0, logger)
	repo := &stubReportRepo{}
	reports := service.NewReportService(
		builder, model,
		&render.MockRenderer{Document: []byte("%PDF-1.4")},
		&storage.MockBlobStore{},
		repo, logger,
	)
	orchestrator := service.NewSessionOrchestrator(
		service.NewClassifier(nil, logger),
		store, builder, model,
		service.NewSignalDetector(logger),
		reports, logger,
	)

	r := gin.New()
	r.GET("/ws", NewServer(orchestrator, time.Second, logger).Handle)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, repo
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := strings.Replace(srv.URL, "http", "ws", 1) + "/ws"
	header := http.Header{}
	header.Set("user-id", "p001")
	header.Set("session-id", "s-test")

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func waitForReports(t *testing.T, repo *stubReportRepo, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if repo.count() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d reports, got %d", want, repo.count())
}

func TestServer_TextRoundtripAndDisconnectReport(t *testing.T) {
	srv, repo := newTestServer(t, &llm.MockClient{Response: "Cuenteme mas."})
	conn := dial(t, srv)

	if err := conn.WriteJSON(domain.InboundFrame{Content: "hola"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var frame domain.OutboundFrame
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read: %v", err)
	}
	if frame.Type != domain.FrameText || frame.Content != "Cuenteme mas." {
		t.Fatalf("unexpected reply: %+v", frame)
	}

	// La desconexion del cliente dispara el reporte del lado servidor.
	conn.Close()
	waitForReports(t, repo, 1)
	if got := repo.first(); got.SessionID != "s-test" || got.PatientID != "p001" {
		t.Fatalf("report identity should come from the connection headers: %+v", got)
	}
}

func TestServer_SignalClosesConnection(t *testing.T) {
	srv, repo := newTestServer(t, &llm.MockClient{Response: "Hasta pronto. [END_OF_CONVERSATION]"})
	conn := dial(t, srv)
	defer conn.Close()

	if err := conn.WriteJSON(domain.InboundFrame{Content: "adios"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var frame domain.OutboundFrame
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(frame.Content, "[END_OF_CONVERSATION]") {
		t.Fatalf("client must not see the control token: %q", frame.Content)
	}

	// Despues del turno terminal el servidor cierra con close normal.
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal closure, got %v", err)
	}

	waitForReports(t, repo, 1)
	// La desconexion posterior no duplica el reporte.
	time.Sleep(50 * time.Millisecond)
	if repo.count() != 1 {
		t.Fatalf("expected exactly 1 report, got %d", repo.count())
	}
}

func TestServer_MalformedFrameAbortsWithoutReport(t *testing.T) {
	srv, repo := newTestServer(t, &llm.MockClient{Response: "irrelevante"})
	conn := dial(t, srv)
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{esto no es json")); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected connection to be closed after protocol error")
	}

	time.Sleep(100 * time.Millisecond)
	if repo.count() != 0 {
		t.Fatalf("protocol errors must not produce a report, got %d", repo.count())
	}
}

func TestServer_ValidationErrorKeepsSessionAlive(t *testing.T) {
	srv, repo := newTestServer(t, &llm.MockClient{Response: "sigo aqui"})
	conn := dial(t, srv)

	if err := conn.WriteJSON(domain.InboundFrame{Content: "hola", Audio: "UklGRg=="}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var frame domain.OutboundFrame
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read: %v", err)
	}
	if frame.Type != domain.FrameError || frame.Meta.Source != "validation" {
		t.Fatalf("expected validation error frame, got %+v", frame)
	}

	// La sesion sigue viva: el siguiente frame valido obtiene respuesta.
	if err := conn.WriteJSON(domain.InboundFrame{Content: "hola de nuevo"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read after validation error: %v", err)
	}
	if frame.Type != domain.FrameText {
		t.Fatalf("expected text reply after recovery, got %+v", frame)
	}

	conn.Close()
	waitForReports(t, repo, 1)
}
