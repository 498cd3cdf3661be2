package freights

import (
	"net/http"
	"strconv"
	"strings"

	"freight-app/database"
	"freight-app/internal/domain/freight"

	"github.com/gin-gonic/gin"
)

type vehicleInput struct {
	Plate      string  `json:"plate" binding:"required"`
	Model      string  `json:"model"`
	BodyType   string  `json:"body_type"`
	CapacityKg float64 `json:"capacity_kg"`
}

// GET /vehicles — the caller's registered vehicles.
func ListVehicles(c *gin.Context) {
	var rows []freight.Vehicle
	if err := database.DB.Where("driver_id = ?", c.GetUint("user_id")).Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load vehicles"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// POST /vehicles
func CreateVehicle(c *gin.Context) {
	var input vehicleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	row := freight.Vehicle{
		DriverID:   c.GetUint("user_id"),
		Plate:      strings.ToUpper(strings.TrimSpace(input.Plate)),
		Model:      input.Model,
		BodyType:   input.BodyType,
		CapacityKg: input.CapacityKg,
	}
	if err := database.DB.Create(&row).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Plate already registered"})
		return
	}
	c.JSON(http.StatusCreated, row)
}

// DELETE /vehicles/:id
func DeleteVehicle(c *gin.Context) {
	vehicleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle id"})
		return
	}

	res := database.DB.Where("id = ? AND driver_id = ?", vehicleID, c.GetUint("user_id")).
		Delete(&freight.Vehicle{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete vehicle"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vehicle deleted"})
}

// POST /freights/:id/status — assigned driver moves the load along.
func UpdateFreightStatus(c *gin.Context) {
	freightID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid freight id"})
		return
	}

	var input struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	allowed := map[string]string{
		freight.FreightInTransit: freight.FreightAssigned,
		freight.FreightDelivered: freight.FreightInTransit,
	}
	from, ok := allowed[input.Status]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status transition"})
		return
	}

	res := database.DB.Model(&freight.Freight{}).
		Where("id = ? AND driver_id = ? AND status = ?", freightID, c.GetUint("user_id"), from).
		Update("status", input.Status)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update freight"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Freight is not in the expected state"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Status updated"})
}
