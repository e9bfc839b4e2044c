package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/dojoworks/dojo_backend/config"
	"bitbucket.org/dojoworks/dojo_backend/iso20022"
	"bitbucket.org/dojoworks/dojo_backend/models"
	"bitbucket.org/dojoworks/dojo_backend/utils"
	"bitbucket.org/dojoworks/dojo_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

const dateLayout = "2006-01-02"

// writeError maps domain errors onto HTTP statuses:
// validation -> 400, lifecycle/timing -> 409, broken snapshot -> 500,
// missing row -> 404. Codes travel to the dashboard unchanged.
func writeError(c *gin.Context, err error) {
	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message, "code": vErr.Code, "field": vErr.Field})
		return
	}
	var sErr *models.StateError
	if errors.As(err, &sErr) {
		// Lead-time violations are bad input (pick a later date), not a
		// lifecycle conflict.
		status := http.StatusConflict
		if sErr.Code == models.ErrCodeLeadTimeTooShort {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": sErr.Message, "code": sErr.Code, "entity": sErr.Entity, "entity_id": sErr.EntityId})
		return
	}
	var xErr *iso20022.SerializationError
	if errors.As(err, &xErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": xErr.Error(), "code": "SerializationError"})
		return
	}
	if errors.Is(err, utils.ErrorRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// tenantContext stamps the explicit tenant id into the request context so the
// tenant guard scopes every query downstream. Tenant always comes from the
// request, never from ambient session state.
func tenantContext(c *gin.Context, tenantId string) *gin.Context {
	c.Request = c.Request.WithContext(utils.SetTenantIdInContext(c.Request.Context(), tenantId))
	return c
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func createMandateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewMandate
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c = tenantContext(c, input.TenantId)
		mandate, err := models.CreateMandate(c.Request.Context(), input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, mandate)
	}
}

func getMandateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		tenantId := c.Query("tenant_id")
		if tenantId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required", "code": models.ErrCodeMissingTenant})
			return
		}
		c = tenantContext(c, tenantId)
		mandate, err := models.GetMandate(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, mandate)
	}
}

func listMandatesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantId := c.Query("tenant_id")
		if tenantId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required", "code": models.ErrCodeMissingTenant})
			return
		}
		c = tenantContext(c, tenantId)
		mandates, err := models.ListMandates(c.Request.Context(), tenantId)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"mandates": mandates, "count": len(mandates)})
	}
}

type mandateStatusRequest struct {
	TenantId string `json:"tenant_id" binding:"required"`
	Status   string `json:"status" binding:"required"`
}

func setMandateStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req mandateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c = tenantContext(c, req.TenantId)
		mandate, err := models.SetMandateStatus(c.Request.Context(), id, models.MandateStatus(req.Status))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, mandate)
	}
}

func upsertCreditorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCreditorProfile
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := validate.Struct(input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c = tenantContext(c, input.TenantId)
		profile, err := models.UpsertCreditorProfile(c.Request.Context(), input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

func createChargeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewChargeEntry
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c = tenantContext(c, input.TenantId)
		entry, err := models.CreateChargeEntry(c.Request.Context(), input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, entry)
	}
}

type createBatchRequest struct {
	TenantId      string `json:"tenant_id" binding:"required"`
	ExecutionDate string `json:"execution_date" binding:"required"`
}

func createBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		executionDate, err := time.ParseInLocation(dateLayout, req.ExecutionDate, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "execution_date must be YYYY-MM-DD", "code": models.ErrCodeMissingField, "field": "execution_date"})
			return
		}
		c = tenantContext(c, req.TenantId)

		logger := config.GetLogger()
		batch, err := workflow.BuildBatch(c.Request.Context(), logger, req.TenantId, executionDate)
		if err != nil {
			writeError(c, err)
			return
		}
		if batch == nil {
			c.JSON(http.StatusOK, gin.H{"transaction_count": 0, "total_amount": "0.00"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"id":                batch.ID,
			"batch_reference":   batch.BatchReference,
			"execution_date":    batch.ExecutionDate.Format(dateLayout),
			"status":            batch.Status,
			"transaction_count": batch.TransactionCount,
			"total_amount":      batch.TotalAmount.StringFixed(2),
		})
	}
}

func getBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		tenantId := c.Query("tenant_id")
		if tenantId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required", "code": models.ErrCodeMissingTenant})
			return
		}
		c = tenantContext(c, tenantId)
		batch, err := models.GetBatchWithTransactions(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, batch)
	}
}

func listBatchesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantId := c.Query("tenant_id")
		if tenantId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required", "code": models.ErrCodeMissingTenant})
			return
		}
		c = tenantContext(c, tenantId)
		batches, err := models.ListBatches(c.Request.Context(), tenantId)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"batches": batches, "count": len(batches)})
	}
}

type batchStatusRequest struct {
	TenantId string `json:"tenant_id" binding:"required"`
	Status   string `json:"status" binding:"required"`
}

func setBatchStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req batchStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c = tenantContext(c, req.TenantId)
		logger := config.GetLogger()
		batch, err := workflow.AdvanceBatchStatus(c.Request.Context(), logger, id, models.BatchStatus(req.Status))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, batch)
	}
}

func exportBatchXmlHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		tenantId := c.Query("tenant_id")
		if tenantId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required", "code": models.ErrCodeMissingTenant})
			return
		}
		c = tenantContext(c, tenantId)
		logger := config.GetLogger()
		xmlBytes, filename, err := workflow.ExportBatchXml(c.Request.Context(), logger, id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Data(http.StatusOK, "application/xml", xmlBytes)
	}
}

func batchReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		tenantId := c.Query("tenant_id")
		if tenantId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required", "code": models.ErrCodeMissingTenant})
			return
		}
		c = tenantContext(c, tenantId)
		reportBytes, filename, err := workflow.BuildBatchReport(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", reportBytes)
	}
}

func historyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		tenantId := c.Query("tenant_id")
		if tenantId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required", "code": models.ErrCodeMissingTenant})
			return
		}
		referenceType := c.Query("reference_type")
		if referenceType == "" {
			referenceType = "SepaBatch"
		}
		c = tenantContext(c, tenantId)
		rows, err := models.ListHistory(c.Request.Context(), referenceType, id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": rows, "count": len(rows)})
	}
}
