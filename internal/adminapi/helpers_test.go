package adminapi

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/talkincode/topolive/config"
	"github.com/talkincode/topolive/internal/topology"
	"github.com/talkincode/topolive/internal/webserver"
)

// fakeAppContext satisfies app.AppContext without starting anything
type fakeAppContext struct {
	db        *gorm.DB
	cfg       *config.AppConfig
	source    topology.SnapshotSource
	hub       *topology.Hub
	published int32
}

func (f *fakeAppContext) DB() *gorm.DB                      { return f.db }
func (f *fakeAppContext) Config() *config.AppConfig         { return f.cfg }
func (f *fakeAppContext) Scheduler() *cron.Cron             { return nil }
func (f *fakeAppContext) Topology() topology.SnapshotSource { return f.source }
func (f *fakeAppContext) Hub() *topology.Hub                { return f.hub }
func (f *fakeAppContext) PublishInventoryChanged()          { atomic.AddInt32(&f.published, 1) }
func (f *fakeAppContext) MigrateDB(bool) error              { return nil }
func (f *fakeAppContext) InitDb()                           {}
func (f *fakeAppContext) DropAll()                          {}

func (f *fakeAppContext) publishCount() int {
	return int(atomic.LoadInt32(&f.published))
}

func newFakeAppContext(t *testing.T) (*fakeAppContext, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return &fakeAppContext{db: db, cfg: config.DefaultAppConfig()}, mock
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = webserver.NewValidator()
	return e
}

func newContext(appCtx *fakeAppContext, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := newTestEcho().NewContext(req, rec)
	c.Set(webserver.AppContextKey, appCtx)
	return c, rec
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}
