package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/simaogato/networth-backend/internal/domain"
)

const maxImportSize = 32 << 20

type TotalRequest struct {
	Page   domain.Page      `json:"page" form:"page"`
	Date   string           `json:"date" form:"date"`
	Buffer []domain.Section `json:"buffer" form:"-"` // non-null while editing
}

type TotalResponse struct {
	Total   string `json:"total"`
	Display string `json:"display"`
}

type ChangeTypeRequest struct {
	AssetType domain.AssetType `json:"assetType"`
}

type RefreshRequest struct {
	Date   string           `json:"date"`
	Buffer []domain.Section `json:"buffer"`
}

type SaveSnapshotRequest struct {
	Date     string           `json:"date"`
	Sections []domain.Section `json:"sections"` // null for the live sections
}

func (h ApiHandler) getTotal(c *gin.Context) {
	var req TotalRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		returnErrorJsonCode(err, c, http.StatusBadRequest)
		return
	}
	if c.Request.Method == http.MethodPost {
		if err := c.ShouldBindJSON(&req); err != nil {
			returnErrorJsonCode(err, c, http.StatusBadRequest)
			return
		}
	}

	view, err := domain.NewView(req.Page, req.Date, req.Buffer)
	if err != nil {
		returnErrorJsonCode(err, c, http.StatusBadRequest)
		return
	}
	total, err := h.DisplayService.Total(c.Request.Context(), view)
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(http.StatusOK, TotalResponse{Total: total.String(), Display: domain.FormatMoney(total)})
}

func (h ApiHandler) listSections(c *gin.Context) {
	sections, err := h.SectionService.List(c.Request.Context())
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sections": sections})
}

func (h ApiHandler) addSection(c *gin.Context) {
	sec, err := h.SectionService.Add(c.Request.Context())
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(http.StatusCreated, sec)
}

func (h ApiHandler) updateSection(c *gin.Context) {
	id, ok := sectionID(c)
	if !ok {
		return
	}
	var patch domain.SectionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		returnErrorJsonCode(err, c, http.StatusBadRequest)
		return
	}

	res, err := h.SectionService.Edit(c.Request.Context(), id, patch)
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h ApiHandler) changeSectionType(c *gin.Context) {
	id, ok := sectionID(c)
	if !ok {
		return
	}
	var req ChangeTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		returnErrorJsonCode(err, c, http.StatusBadRequest)
		return
	}

	sec, err := h.SectionService.ChangeType(c.Request.Context(), id, req.AssetType)
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(http.StatusOK, sec)
}

func (h ApiHandler) removeSection(c *gin.Context) {
	id, ok := sectionID(c)
	if !ok {
		return
	}
	if err := h.SectionService.Remove(c.Request.Context(), id); err != nil {
		returnErrorJson(err, c)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h ApiHandler) refreshSection(c *gin.Context) {
	id, ok := sectionID(c)
	if !ok {
		return
	}
	var req RefreshRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			returnErrorJsonCode(err, c, http.StatusBadRequest)
			return
		}
	}

	if req.Buffer != nil {
		buffer, res, err := h.SectionService.RefreshBuffer(c.Request.Context(), req.Buffer, id, req.Date)
		if err != nil {
			returnErrorJson(err, c)
			return
		}
		c.JSON(http.StatusOK, gin.H{"section": res.Section, "price": res.Price, "error": res.Error, "buffer": buffer})
		return
	}

	res, err := h.SectionService.Refresh(c.Request.Context(), id, req.Date)
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h ApiHandler) listSnapshots(c *gin.Context) {
	snaps, err := h.SnapshotService.List(c.Request.Context())
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snaps})
}

func (h ApiHandler) saveSnapshot(c *gin.Context) {
	var req SaveSnapshotRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			returnErrorJsonCode(err, c, http.StatusBadRequest)
			return
		}
	}

	snap, err := h.SnapshotService.Save(c.Request.Context(), req.Date, req.Sections)
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// getSnapshot serves one snapshot by date; "latest" selects the most recent one
func (h ApiHandler) getSnapshot(c *gin.Context) {
	date := c.Param("date")

	var (
		snap *domain.Snapshot
		err  error
	)
	if date == "latest" {
		snap, err = h.SnapshotService.Latest(c.Request.Context())
	} else {
		snap, err = h.SnapshotService.Get(c.Request.Context(), date)
	}
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h ApiHandler) deleteSnapshot(c *gin.Context) {
	confirm, _ := strconv.ParseBool(c.Query("confirm"))
	if err := h.SnapshotService.Delete(c.Request.Context(), c.Param("date"), confirm); err != nil {
		returnErrorJson(err, c)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h ApiHandler) getHistory(c *gin.Context) {
	history, err := h.SnapshotService.History(c.Request.Context())
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h ApiHandler) getHistoryCSV(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.SnapshotService.WriteHistoryCSV(c.Request.Context(), &buf); err != nil {
		returnErrorJson(err, c)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="networth-history.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// resolvePrice always answers 200; a null price is the failure signal
func (h ApiHandler) resolvePrice(c *gin.Context) {
	result := h.PricingService.Resolve(c.Request.Context(), c.Param("ticker"), c.Query("date"))
	c.JSON(http.StatusOK, result)
}

func (h ApiHandler) clearPriceCache(c *gin.Context) {
	confirm, _ := strconv.ParseBool(c.Query("confirm"))
	n, err := h.PricingService.ClearCache(c.Request.Context(), confirm)
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": n})
}

func (h ApiHandler) export(c *gin.Context) {
	var buf bytes.Buffer
	name, err := h.TransferService.WriteExport(c.Request.Context(), &buf)
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

// importData accepts the export document either as a multipart "file"
// upload or as the raw request body
func (h ApiHandler) importData(c *gin.Context) {
	data, err := readImport(c)
	if err != nil {
		returnErrorJsonCode(err, c, http.StatusBadRequest)
		return
	}

	summary, err := h.TransferService.Import(c.Request.Context(), data)
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func readImport(c *gin.Context) ([]byte, error) {
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload: %w", err)
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, maxImportSize))
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty import")
	}
	return data, nil
}

func sectionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		returnErrorJsonCode(fmt.Errorf("invalid section id format: %w", err), c, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
