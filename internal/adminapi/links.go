package adminapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"gorm.io/gorm"

	"github.com/talkincode/topolive/internal/domain"
	"github.com/talkincode/topolive/internal/webserver"
	"github.com/talkincode/topolive/pkg/common"
)

// Device references arrive either as decimal strings or as numbers
type linkPayload struct {
	SourceDevice      interface{} `json:"source_device" validate:"required"`
	SourceInterface   string      `json:"source_interface" validate:"required,max=50"`
	TargetDevice      interface{} `json:"target_device" validate:"required"`
	TargetInterface   string      `json:"target_interface" validate:"required,max=50"`
	BandwidthCapacity int         `json:"bandwidth_capacity"`
}

type linkUpdatePayload struct {
	SourceInterface   *string `json:"source_interface" validate:"omitempty,min=1,max=50"`
	TargetInterface   *string `json:"target_interface" validate:"omitempty,min=1,max=50"`
	BandwidthCapacity *int    `json:"bandwidth_capacity"`
}

// linkView adds endpoint names for list screens
type linkView struct {
	domain.NetLink
	SourceDeviceName string `json:"source_device_name"`
	TargetDeviceName string `json:"target_device_name"`
}

// registerLinkRoutes registers link CRUD routes
func registerLinkRoutes() {
	webserver.ApiGET("/network/links", listLinks)
	webserver.ApiGET("/network/links/:id", getLink)
	webserver.ApiPOST("/network/links", createLink)
	webserver.ApiPUT("/network/links/:id", updateLink)
	webserver.ApiDELETE("/network/links/:id", deleteLink)
}

func listLinks(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.NetLink{})
	if deviceID := cast.ToInt64(c.QueryParam("device_id")); deviceID > 0 {
		db = db.Where("source_device_id = ? OR target_device_id = ?", deviceID, deviceID)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query links", err.Error())
	}

	var links []domain.NetLink
	if err := db.Order("source_device_id ASC, target_device_id ASC, id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&links).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query links", err.Error())
	}

	views, err := withDeviceNames(c, links)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query devices", err.Error())
	}
	return paged(c, views, total, page, pageSize)
}

func withDeviceNames(c echo.Context, links []domain.NetLink) ([]linkView, error) {
	views := make([]linkView, 0, len(links))
	if len(links) == 0 {
		return views, nil
	}

	ids := make([]int64, 0, len(links)*2)
	for _, l := range links {
		ids = append(ids, l.SourceDeviceId, l.TargetDeviceId)
	}
	var devices []domain.NetDevice
	if err := GetDB(c).Select("id", "name").Where("id IN ?", ids).Find(&devices).Error; err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(devices))
	for _, d := range devices {
		names[d.ID] = d.Name
	}

	for _, l := range links {
		views = append(views, linkView{
			NetLink:          l,
			SourceDeviceName: common.IfEmptyStr(names[l.SourceDeviceId], common.NA),
			TargetDeviceName: common.IfEmptyStr(names[l.TargetDeviceId], common.NA),
		})
	}
	return views, nil
}

func getLink(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid link ID", nil)
	}

	var l domain.NetLink
	if err := GetDB(c).Where("id = ?", id).First(&l).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query link", err.Error())
	}

	return ok(c, l)
}

func createLink(c echo.Context) error {
	var payload linkPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse link parameters", nil)
	}
	payload.SourceInterface = strings.TrimSpace(payload.SourceInterface)
	payload.TargetInterface = strings.TrimSpace(payload.TargetInterface)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	sourceID, err := cast.ToInt64E(payload.SourceDevice)
	if err != nil || sourceID <= 0 {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid source device", nil)
	}
	targetID, err := cast.ToInt64E(payload.TargetDevice)
	if err != nil || targetID <= 0 {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid target device", nil)
	}

	var found int64
	if err := GetDB(c).Model(&domain.NetDevice{}).Where("id IN ?", []int64{sourceID, targetID}).Count(&found).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query devices", err.Error())
	}
	expected := int64(2)
	if sourceID == targetID {
		expected = 1
	}
	if found < expected {
		return fail(c, http.StatusBadRequest, "DEVICE_NOT_FOUND", "Source or target device does not exist", nil)
	}

	var exists int64
	if err := GetDB(c).Model(&domain.NetLink{}).
		Where("source_device_id = ? AND source_interface = ? AND target_device_id = ? AND target_interface = ?",
			sourceID, payload.SourceInterface, targetID, payload.TargetInterface).
		Count(&exists).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query links", err.Error())
	}
	if exists > 0 {
		return fail(c, http.StatusConflict, "LINK_EXISTS", "Link between these interfaces already exists", nil)
	}

	link := domain.NetLink{
		ID:                common.UUIDint64(),
		SourceDeviceId:    sourceID,
		SourceInterface:   payload.SourceInterface,
		TargetDeviceId:    targetID,
		TargetInterface:   payload.TargetInterface,
		BandwidthCapacity: payload.BandwidthCapacity,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}

	if err := GetDB(c).Create(&link).Error; isUniqueViolation(err) {
		return fail(c, http.StatusConflict, "LINK_EXISTS", "Link between these interfaces already exists", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create link", err.Error())
	}

	GetAppContext(c).PublishInventoryChanged()
	return created(c, link)
}

func updateLink(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid link ID", nil)
	}

	var payload linkUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse link parameters", nil)
	}
	if trimField(payload.SourceInterface) {
		return requiredField(c, "source_interface")
	}
	if trimField(payload.TargetInterface) {
		return requiredField(c, "target_interface")
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var l domain.NetLink
	if err := GetDB(c).Where("id = ?", id).First(&l).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query link", err.Error())
	}

	changed := false
	if payload.SourceInterface != nil && *payload.SourceInterface != l.SourceInterface {
		l.SourceInterface = *payload.SourceInterface
		changed = true
	}
	if payload.TargetInterface != nil && *payload.TargetInterface != l.TargetInterface {
		l.TargetInterface = *payload.TargetInterface
		changed = true
	}
	if changed {
		var exists int64
		if err := GetDB(c).Model(&domain.NetLink{}).
			Where("source_device_id = ? AND source_interface = ? AND target_device_id = ? AND target_interface = ? AND id != ?",
				l.SourceDeviceId, l.SourceInterface, l.TargetDeviceId, l.TargetInterface, id).
			Count(&exists).Error; err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query links", err.Error())
		}
		if exists > 0 {
			return fail(c, http.StatusConflict, "LINK_EXISTS", "Link between these interfaces already exists", nil)
		}
	}
	if payload.BandwidthCapacity != nil {
		l.BandwidthCapacity = *payload.BandwidthCapacity
	}
	l.UpdatedAt = time.Now()

	if err := GetDB(c).Save(&l).Error; isUniqueViolation(err) {
		return fail(c, http.StatusConflict, "LINK_EXISTS", "Link between these interfaces already exists", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update link", err.Error())
	}

	GetAppContext(c).PublishInventoryChanged()
	return ok(c, l)
}

func deleteLink(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid link ID", nil)
	}

	res := GetDB(c).Where("id = ?", id).Delete(&domain.NetLink{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete link", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found", nil)
	}

	GetAppContext(c).PublishInventoryChanged()
	return ok(c, map[string]interface{}{"id": cast.ToString(id), "status": "deleted"})
}
