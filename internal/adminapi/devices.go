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

type devicePayload struct {
	Name               string `json:"name" validate:"required,min=1,max=100"`
	DeviceType         string `json:"device_type" validate:"required,oneof=firewall switch router hypervisor server isp"`
	IpAddr             string `json:"ip_address" validate:"required,ip"`
	PrometheusInstance string `json:"prometheus_instance" validate:"omitempty,max=100"`
	IsMonitored        *bool  `json:"is_monitored"`
	PositionX          int    `json:"position_x"`
	PositionY          int    `json:"position_y"`
	Icon               string `json:"icon"`
}

type deviceUpdatePayload struct {
	Name               *string `json:"name" validate:"omitempty,min=1,max=100"`
	DeviceType         *string `json:"device_type" validate:"omitempty,oneof=firewall switch router hypervisor server isp"`
	IpAddr             *string `json:"ip_address" validate:"omitempty,ip"`
	PrometheusInstance *string `json:"prometheus_instance" validate:"omitempty,max=100"`
	IsMonitored        *bool   `json:"is_monitored"`
	Icon               *string `json:"icon"`
}

type positionPayload struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

// registerDeviceRoutes registers device CRUD routes
func registerDeviceRoutes() {
	webserver.ApiGET("/network/devices", listDevices)
	webserver.ApiGET("/network/devices/:id", getDevice)
	webserver.ApiPOST("/network/devices", createDevice)
	webserver.ApiPUT("/network/devices/:id", updateDevice)
	webserver.ApiDELETE("/network/devices/:id", deleteDevice)
	webserver.ApiPOST("/network/devices/:id/position", updateDevicePosition)
}

func listDevices(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.NetDevice{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = db.Where("name ILIKE ? OR ip_addr ILIKE ?", "%"+q+"%", "%"+q+"%")
	}
	if t := strings.TrimSpace(c.QueryParam("device_type")); t != "" {
		db = db.Where("device_type = ?", t)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query devices", err.Error())
	}

	var devices []domain.NetDevice
	if err := db.Order("name ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&devices).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query devices", err.Error())
	}

	return paged(c, devices, total, page, pageSize)
}

func getDevice(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid device ID", nil)
	}

	var d domain.NetDevice
	if err := GetDB(c).Where("id = ?", id).First(&d).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "DEVICE_NOT_FOUND", "Device not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query device", err.Error())
	}

	return ok(c, d)
}

func createDevice(c echo.Context) error {
	var payload devicePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse device parameters", nil)
	}
	payload.Name = strings.TrimSpace(payload.Name)
	payload.IpAddr = strings.TrimSpace(payload.IpAddr)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var exists int64
	if err := GetDB(c).Model(&domain.NetDevice{}).Where("name = ?", payload.Name).Count(&exists).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query device", err.Error())
	}
	if exists > 0 {
		return fail(c, http.StatusConflict, "DEVICE_EXISTS", "Device name already exists", nil)
	}

	monitored := true
	if payload.IsMonitored != nil {
		monitored = *payload.IsMonitored
	}
	device := domain.NetDevice{
		ID:                 common.UUIDint64(),
		Name:               payload.Name,
		DeviceType:         payload.DeviceType,
		IpAddr:             payload.IpAddr,
		PrometheusInstance: strings.TrimSpace(payload.PrometheusInstance),
		IsMonitored:        monitored,
		PositionX:          payload.PositionX,
		PositionY:          payload.PositionY,
		Icon:               payload.Icon,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}

	if err := GetDB(c).Create(&device).Error; isUniqueViolation(err) {
		return fail(c, http.StatusConflict, "DEVICE_EXISTS", "Device name already exists", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create device", err.Error())
	}

	GetAppContext(c).PublishInventoryChanged()
	return created(c, device)
}

func updateDevice(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid device ID", nil)
	}

	var payload deviceUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse device parameters", nil)
	}
	if trimField(payload.Name) {
		return requiredField(c, "name")
	}
	if trimField(payload.IpAddr) {
		return requiredField(c, "ip_address")
	}
	trimField(payload.PrometheusInstance)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var d domain.NetDevice
	if err := GetDB(c).Where("id = ?", id).First(&d).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "DEVICE_NOT_FOUND", "Device not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query device", err.Error())
	}

	if payload.Name != nil && *payload.Name != d.Name {
		var exists int64
		if err := GetDB(c).Model(&domain.NetDevice{}).Where("name = ? AND id != ?", *payload.Name, id).Count(&exists).Error; err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query device", err.Error())
		}
		if exists > 0 {
			return fail(c, http.StatusConflict, "DEVICE_EXISTS", "Device name already exists", nil)
		}
		d.Name = *payload.Name
	}
	if payload.DeviceType != nil {
		d.DeviceType = *payload.DeviceType
	}
	if payload.IpAddr != nil {
		d.IpAddr = *payload.IpAddr
	}
	if payload.PrometheusInstance != nil {
		d.PrometheusInstance = *payload.PrometheusInstance
	}
	if payload.IsMonitored != nil {
		d.IsMonitored = *payload.IsMonitored
	}
	if payload.Icon != nil {
		d.Icon = *payload.Icon
	}
	d.UpdatedAt = time.Now()

	if err := GetDB(c).Save(&d).Error; isUniqueViolation(err) {
		return fail(c, http.StatusConflict, "DEVICE_EXISTS", "Device name already exists", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update device", err.Error())
	}

	GetAppContext(c).PublishInventoryChanged()
	return ok(c, d)
}

// deleteDevice removes the device together with every link touching it
func deleteDevice(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid device ID", nil)
	}

	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source_device_id = ? OR target_device_id = ?", id, id).Delete(&domain.NetLink{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.NetDevice{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "DEVICE_NOT_FOUND", "Device not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete device", err.Error())
	}

	GetAppContext(c).PublishInventoryChanged()
	return ok(c, map[string]interface{}{"id": cast.ToString(id), "status": "deleted"})
}

// updateDevicePosition saves the canvas location after a drag
func updateDevicePosition(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid device ID", nil)
	}

	var payload positionPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse position", nil)
	}

	var d domain.NetDevice
	if err := GetDB(c).Where("id = ?", id).First(&d).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "DEVICE_NOT_FOUND", "Device not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query device", err.Error())
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if payload.X != nil {
		updates["position_x"] = *payload.X
	}
	if payload.Y != nil {
		updates["position_y"] = *payload.Y
	}
	if err := GetDB(c).Model(&domain.NetDevice{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save position", err.Error())
	}

	GetAppContext(c).PublishInventoryChanged()
	return ok(c, map[string]interface{}{"status": "ok"})
}
