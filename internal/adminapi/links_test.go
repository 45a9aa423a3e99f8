package adminapi

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestCreateLinkUnknownDevice(t *testing.T) {
	appCtx, mock := newFakeAppContext(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "net_device" WHERE id IN \(\$1,\$2\)`).
		WithArgs(int64(1), int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	c, rec := newContext(appCtx, http.MethodPost, "/api/v1/network/links",
		`{"source_device":"1","source_interface":"ae0","target_device":99,"target_interface":"xe-0/0/1","bandwidth_capacity":1000}`)
	if err := createLink(c); err != nil {
		t.Fatalf("createLink: %v", err)
	}
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "DEVICE_NOT_FOUND") {
		t.Fatalf("expected 400 DEVICE_NOT_FOUND, got %d %s", rec.Code, rec.Body.String())
	}
	if appCtx.publishCount() != 0 {
		t.Fatalf("rejected mutations must not publish")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestCreateLinkDuplicateEndpoints(t *testing.T) {
	appCtx, mock := newFakeAppContext(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "net_device"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "net_link" WHERE source_device_id = \$1 AND source_interface = \$2 AND target_device_id = \$3 AND target_interface = \$4`).
		WithArgs(int64(1), "ae0", int64(2), "xe-0/0/1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	c, rec := newContext(appCtx, http.MethodPost, "/api/v1/network/links",
		`{"source_device":"1","source_interface":" ae0 ","target_device":"2","target_interface":"xe-0/0/1","bandwidth_capacity":1000}`)
	if err := createLink(c); err != nil {
		t.Fatalf("createLink: %v", err)
	}
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "LINK_EXISTS") {
		t.Fatalf("expected 409 LINK_EXISTS, got %d %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestCreateLinkPublishes(t *testing.T) {
	appCtx, mock := newFakeAppContext(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "net_device"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "net_link"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "net_link"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectCommit()

	c, rec := newContext(appCtx, http.MethodPost, "/api/v1/network/links",
		`{"source_device":1,"source_interface":"ae0","target_device":2,"target_interface":"xe-0/0/1","bandwidth_capacity":0}`)
	if err := createLink(c); err != nil {
		t.Fatalf("createLink: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"source_device":"1"`) {
		t.Fatalf("device references must be emitted as strings: %s", rec.Body.String())
	}
	if appCtx.publishCount() != 1 {
		t.Fatalf("expected one inventory change, got %d", appCtx.publishCount())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestCreateLinkRequiresInterfaces(t *testing.T) {
	appCtx, _ := newFakeAppContext(t)
	c, rec := newContext(appCtx, http.MethodPost, "/api/v1/network/links",
		`{"source_device":"1","target_device":"2","target_interface":"xe-0/0/1"}`)
	if err := createLink(c); err != nil {
		t.Fatalf("createLink: %v", err)
	}
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "source_interface") {
		t.Fatalf("expected source_interface validation error, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestListLinksIncludesDeviceNames(t *testing.T) {
	appCtx, mock := newFakeAppContext(t)
	now := time.Now()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "net_link"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "net_link" ORDER BY source_device_id ASC, target_device_id ASC, id ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "source_device_id", "source_interface", "target_device_id", "target_interface", "bandwidth_capacity", "created_at", "updated_at"}).
			AddRow(10, 1, "ae0", 2, "xe-0/0/1", 1000, now, now))
	mock.ExpectQuery(`SELECT "id","name" FROM "net_device" WHERE id IN \(\$1,\$2\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "fw1"))

	c, rec := newContext(appCtx, http.MethodGet, "/api/v1/network/links", "")
	if err := listLinks(c); err != nil {
		t.Fatalf("listLinks: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"source_device_name":"fw1"`) || !strings.Contains(body, `"target_device_name":"N/A"`) {
		t.Fatalf("unexpected link view: %s", body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestDeleteLinkNotFound(t *testing.T) {
	appCtx, mock := newFakeAppContext(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "net_link" WHERE id = \$1`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	c, rec := newContext(appCtx, http.MethodDelete, "/api/v1/network/links/10", "")
	if err := deleteLink(withID(c, "10")); err != nil {
		t.Fatalf("deleteLink: %v", err)
	}
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "LINK_NOT_FOUND") {
		t.Fatalf("expected 404, got %d %s", rec.Code, rec.Body.String())
	}
	if appCtx.publishCount() != 0 {
		t.Fatalf("failed mutations must not publish")
	}
}

func TestUpdateLinkCapacity(t *testing.T) {
	appCtx, mock := newFakeAppContext(t)
	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "net_link" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "source_device_id", "source_interface", "target_device_id", "target_interface", "bandwidth_capacity", "created_at", "updated_at"}).
			AddRow(10, 1, "ae0", 2, "xe-0/0/1", 1000, now, now))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "net_link" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := newContext(appCtx, http.MethodPut, "/api/v1/network/links/10", `{"bandwidth_capacity":10000}`)
	if err := updateLink(withID(c, "10")); err != nil {
		t.Fatalf("updateLink: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"bandwidth_capacity":10000`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if appCtx.publishCount() != 1 {
		t.Fatalf("expected one inventory change, got %d", appCtx.publishCount())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestUpdateLinkRejectsBlankInterface(t *testing.T) {
	appCtx, mock := newFakeAppContext(t)
	c, rec := newContext(appCtx, http.MethodPut, "/api/v1/network/links/10", `{"source_interface":"   "}`)
	if err := updateLink(withID(c, "10")); err != nil {
		t.Fatalf("updateLink: %v", err)
	}
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"source_interface":"required"`) {
		t.Fatalf("expected source_interface validation error, got %d %s", rec.Code, rec.Body.String())
	}
	if appCtx.publishCount() != 0 {
		t.Fatalf("rejected mutations must not publish")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestCreateLinkDuplicateCheckFailure(t *testing.T) {
	appCtx, mock := newFakeAppContext(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "net_device"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "net_link"`).WillReturnError(errors.New("connection reset"))

	c, rec := newContext(appCtx, http.MethodPost, "/api/v1/network/links",
		`{"source_device":1,"source_interface":"ae0","target_device":2,"target_interface":"xe-0/0/1"}`)
	if err := createLink(c); err != nil {
		t.Fatalf("createLink: %v", err)
	}
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "DATABASE_ERROR") {
		t.Fatalf("expected 500 DATABASE_ERROR, got %d %s", rec.Code, rec.Body.String())
	}
	if appCtx.publishCount() != 0 {
		t.Fatalf("failed mutations must not publish")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestCreateLinkConcurrentDuplicate(t *testing.T) {
	appCtx, mock := newFakeAppContext(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "net_device"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "net_link"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "net_link"`).WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	c, rec := newContext(appCtx, http.MethodPost, "/api/v1/network/links",
		`{"source_device":1,"source_interface":"ae0","target_device":2,"target_interface":"xe-0/0/1"}`)
	if err := createLink(c); err != nil {
		t.Fatalf("createLink: %v", err)
	}
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "LINK_EXISTS") {
		t.Fatalf("expected 409 LINK_EXISTS, got %d %s", rec.Code, rec.Body.String())
	}
	if appCtx.publishCount() != 0 {
		t.Fatalf("failed mutations must not publish")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
