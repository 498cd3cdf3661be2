package freights

import (
	"net/http"
	"strconv"
	"time"

	"freight-app/database"
	"freight-app/internal/domain/freight"

	"github.com/gin-gonic/gin"
)

type freightInput struct {
	Origin      string     `json:"origin" binding:"required"`
	Destination string     `json:"destination" binding:"required"`
	Cargo       string     `json:"cargo" binding:"required"`
	WeightKg    float64    `json:"weight_kg"`
	PriceCents  int64      `json:"price_cents"`
	PickupAt    *time.Time `json:"pickup_at"`
}

// GET /freights — open postings, newest first.
func ListFreights(c *gin.Context) {
	query := database.DB.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	} else {
		query = query.Where("status = ?", freight.FreightOpen)
	}

	var rows []freight.Freight
	if err := query.Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load freights"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GET /freights/mine — postings the caller created or accepted.
func ListMyFreights(c *gin.Context) {
	userID := c.GetUint("user_id")

	var rows []freight.Freight
	if err := database.DB.
		Where("shipper_id = ? OR driver_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load freights"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// POST /freights — shippers post a load. Subscription-guarded.
func CreateFreight(c *gin.Context) {
	var input freightInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	row := freight.Freight{
		ShipperID:   c.GetUint("user_id"),
		Origin:      input.Origin,
		Destination: input.Destination,
		Cargo:       input.Cargo,
		WeightKg:    input.WeightKg,
		PriceCents:  input.PriceCents,
		Status:      freight.FreightOpen,
		PickupAt:    input.PickupAt,
	}
	if err := database.DB.Create(&row).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create freight"})
		return
	}
	c.JSON(http.StatusCreated, row)
}

// PUT /freights/:id — owner-only edit while still open.
func UpdateFreight(c *gin.Context) {
	row, ok := loadOwnedFreight(c)
	if !ok {
		return
	}
	if row.Status != freight.FreightOpen {
		c.JSON(http.StatusConflict, gin.H{"error": "Only open freights can be edited"})
		return
	}

	var input freightInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{
		"origin":      input.Origin,
		"destination": input.Destination,
		"cargo":       input.Cargo,
		"weight_kg":   input.WeightKg,
		"price_cents": input.PriceCents,
		"pickup_at":   input.PickupAt,
	}
	if err := database.DB.Model(row).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update freight"})
		return
	}
	c.JSON(http.StatusOK, row)
}

// DELETE /freights/:id — owner cancels a posting.
func CancelFreight(c *gin.Context) {
	row, ok := loadOwnedFreight(c)
	if !ok {
		return
	}
	if err := database.DB.Model(row).Update("status", freight.FreightCanceled).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel freight"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Freight canceled"})
}

// POST /freights/:id/accept — a driver takes an open load.
func AcceptFreight(c *gin.Context) {
	userID := c.GetUint("user_id")
	freightID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid freight id"})
		return
	}

	// Conditional update: two drivers racing for the same load leaves
	// exactly one assigned.
	res := database.DB.Model(&freight.Freight{}).
		Where("id = ? AND status = ?", freightID, freight.FreightOpen).
		Updates(map[string]interface{}{
			"status":    freight.FreightAssigned,
			"driver_id": userID,
		})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to accept freight"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Freight is no longer open"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Freight accepted"})
}

func loadOwnedFreight(c *gin.Context) (*freight.Freight, bool) {
	freightID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid freight id"})
		return nil, false
	}

	var row freight.Freight
	if err := database.DB.Where("id = ?", freightID).First(&row).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Freight not found"})
		return nil, false
	}
	if row.ShipperID != c.GetUint("user_id") {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your freight"})
		return nil, false
	}
	return &row, true
}
