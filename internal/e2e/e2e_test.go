package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tradebook/internal/authorization"
	"github.com/smallbiznis/tradebook/internal/balance"
	"github.com/smallbiznis/tradebook/internal/catalog"
	"github.com/smallbiznis/tradebook/internal/clock"
	"github.com/smallbiznis/tradebook/internal/config"
	"github.com/smallbiznis/tradebook/internal/counterparty"
	"github.com/smallbiznis/tradebook/internal/cutoff"
	"github.com/smallbiznis/tradebook/internal/events"
	"github.com/smallbiznis/tradebook/internal/ledger"
	"github.com/smallbiznis/tradebook/internal/lock"
	"github.com/smallbiznis/tradebook/internal/migration"
	"github.com/smallbiznis/tradebook/internal/observability"
	"github.com/smallbiznis/tradebook/internal/order"
	"github.com/smallbiznis/tradebook/internal/payment"
	"github.com/smallbiznis/tradebook/internal/report"
	"github.com/smallbiznis/tradebook/internal/scheduler"
	"github.com/smallbiznis/tradebook/internal/seed"
	"github.com/smallbiznis/tradebook/internal/sequence"
	"github.com/smallbiznis/tradebook/internal/server"
	"github.com/smallbiznis/tradebook/internal/settlement"
	"github.com/smallbiznis/tradebook/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type testEnv struct {
	app       *fx.App
	db        *gorm.DB
	seeder    *seed.Seeder
	scheduler *scheduler.Scheduler
	baseURL   string
	httpSrv   *httptest.Server
	tmpDir    string
}

var env *testEnv

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	tmpDir, err := os.MkdirTemp("", "tradebook-e2e")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create temp dir:", err)
		os.Exit(1)
	}
	setDefaultEnv(tmpDir)

	env, err = startEnv(tmpDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to start test environment:", err)
		_ = os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()
	env.shutdown()
	os.Exit(code)
}

func startEnv(tmpDir string) (*testEnv, error) {
	var (
		engine *gin.Engine
		conn   *gorm.DB
		seeder *seed.Seeder
		sched  *scheduler.Scheduler
	)

	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		fx.Provide(func(cfg config.Config) (*snowflake.Node, error) {
			return snowflake.NewNode(cfg.SnowflakeNode)
		}),
		db.Module,
		clock.Module,
		migration.Module,
		lock.Module,
		events.Module,
		sequence.Module,
		cutoff.Module,
		counterparty.Module,
		catalog.Module,
		balance.Module,
		order.Module,
		ledger.Module,
		settlement.Module,
		payment.Module,
		report.Module,
		authorization.Module,
		server.Module,
		scheduler.Module,
		seed.Module,
		fx.Populate(&engine, &conn, &seeder, &sched),
	)
	if err := app.Err(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return nil, err
	}

	httpSrv := httptest.NewServer(engine)
	return &testEnv{
		app:       app,
		db:        conn,
		seeder:    seeder,
		scheduler: sched,
		baseURL:   httpSrv.URL,
		httpSrv:   httpSrv,
		tmpDir:    tmpDir,
	}, nil
}

func (e *testEnv) shutdown() {
	if e == nil {
		return
	}
	if e.httpSrv != nil {
		e.httpSrv.Close()
	}
	if e.app != nil {
		_ = e.app.Stop(context.Background())
	}
	_ = os.RemoveAll(e.tmpDir)
}

func setDefaultEnv(tmpDir string) {
	_ = os.Setenv("ENVIRONMENT", "test")
	_ = os.Setenv("DATABASE_TYPE", "sqlite")
	_ = os.Setenv("DATABASE_SQLITE_PATH", filepath.Join(tmpDir, "tradebook.db"))
	_ = os.Setenv("HTTP_ADDR", "127.0.0.1:0")
	_ = os.Setenv("SCHEDULER_ENABLED", "false")
	_ = os.Setenv("REDIS_ADDR", "")
	setEnvIfEmpty("LOG_LEVEL", "error")
}

func setEnvIfEmpty(key, value string) {
	if strings.TrimSpace(os.Getenv(key)) != "" {
		return
	}
	_ = os.Setenv(key, value)
}

func call(t *testing.T, method, path, role string, body any) (int, map[string]any) {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, env.baseURL+path, &payload)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set(server.HeaderActorID, "usr_"+role)
		req.Header.Set(server.HeaderActorName, role)
		req.Header.Set(server.HeaderActorRole, role)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return resp.StatusCode, decoded
}

func data(t *testing.T, status int, body map[string]any, want int) map[string]any {
	t.Helper()
	if status != want {
		t.Fatalf("expected status %d, got %d: %v", want, status, body)
	}
	out, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected object data, got %v", body["data"])
	}
	return out
}

func TestE2E_HealthCheck(t *testing.T) {
	resp, err := http.Get(env.baseURL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestE2E_TradingDay(t *testing.T) {
	res, err := env.seeder.Demo(context.Background())
	if err != nil {
		t.Fatalf("seed demo data: %v", err)
	}
	if len(res.Counterparties) != 3 || len(res.Products) != 4 {
		t.Fatalf("unexpected seed result: %+v", res)
	}
	customer := res.Counterparties[0].ID.String()
	rice := res.Products[0].ID.String()
	tea := res.Products[2].ID.String()

	place := func(productID string, qty string) string {
		t.Helper()
		status, body := call(t, http.MethodPost, "/api/orders", "clerk", map[string]any{
			"side":            "sales",
			"counterparty_id": customer,
			"lines":           []map[string]any{{"product_id": productID, "quantity": qty}},
		})
		number := data(t, status, body, http.StatusCreated)["order_number"].(string)
		status, body = call(t, http.MethodPost, "/api/orders/"+number+"/confirm", "clerk", nil)
		data(t, status, body, http.StatusOK)
		return number
	}

	regular := place(rice, "2")

	status, body := call(t, http.MethodPost, "/api/cutoff/close", "operator", nil)
	data(t, status, body, http.StatusOK)

	additional := place(tea, "10")

	status, body = call(t, http.MethodGet, "/api/orders/"+additional, "", nil)
	if phase := data(t, status, body, http.StatusOK)["phase"]; phase != "additional" {
		t.Fatalf("expected additional phase, got %v", phase)
	}

	for _, number := range []string{regular, additional} {
		status, body = call(t, http.MethodPost, "/api/orders/"+number+"/settle", "operator", nil)
		data(t, status, body, http.StatusCreated)
	}

	status, body = call(t, http.MethodGet, "/api/balances/"+customer+"?side=receivable", "", nil)
	balance := data(t, status, body, http.StatusOK)
	if balance["current_balance"] != "194000" {
		t.Fatalf("expected balance 194000, got %v", balance["current_balance"])
	}

	status, body = call(t, http.MethodPost, "/api/payments", "operator", map[string]any{
		"direction":       "collection",
		"counterparty_id": customer,
		"amount":          "100000",
		"method":          "bank_transfer",
		"occurred_at":     time.Now().UTC().Format(time.RFC3339),
	})
	payment := data(t, status, body, http.StatusCreated)
	if got := payment["balance"].(map[string]any)["current_balance"]; got != "94000" {
		t.Fatalf("expected balance 94000 after collection, got %v", got)
	}

	status, body = call(t, http.MethodGet, "/api/ledgers?phase=additional", "", nil)
	ledgers := data(t, status, body, http.StatusOK)["ledgers"].([]any)
	if len(ledgers) != 1 {
		t.Fatalf("expected 1 additional ledger, got %d", len(ledgers))
	}

	var pending int64
	if err := env.db.Model(&events.Record{}).Where("published_at IS NULL").Count(&pending).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if pending != 3 {
		t.Fatalf("expected 3 pending events, got %d", pending)
	}
	if err := env.scheduler.OutboxRelayJob(context.Background()); err != nil {
		t.Fatalf("relay outbox: %v", err)
	}
	if err := env.db.Model(&events.Record{}).Where("published_at IS NULL").Count(&pending).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if pending != 0 {
		t.Fatalf("expected outbox drained, got %d pending", pending)
	}
}
