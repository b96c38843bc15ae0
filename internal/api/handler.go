package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ComputerScienceHouse/packet/internal/config"
	"github.com/ComputerScienceHouse/packet/internal/db"
	"github.com/ComputerScienceHouse/packet/internal/logger"
	"github.com/ComputerScienceHouse/packet/internal/model"
	"github.com/ComputerScienceHouse/packet/internal/queue"
	"github.com/ComputerScienceHouse/packet/internal/roster"
	"github.com/ComputerScienceHouse/packet/internal/storage"
	"github.com/ComputerScienceHouse/packet/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	startDateLayout  = "2006-01-02"
	defaultListLimit = 20
	maxListLimit     = 100
)

type Handler struct {
	repo     db.Repository
	storage  storage.Storage
	producer queue.Enqueuer
	cfg      *config.Config
	log      zerolog.Logger
}

func NewHandler(
	repo db.Repository,
	storage storage.Storage,
	producer queue.Enqueuer,
	cfg *config.Config,
) *Handler {
	return &Handler{
		repo:     repo,
		storage:  storage,
		producer: producer,
		cfg:      cfg,
		log:      logger.Component("api"),
	}
}

func (h *Handler) CreateImport(c *gin.Context) {
	mode, err := model.ParseMode(c.PostForm("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid import mode", "mode": c.PostForm("mode")})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Roster file is required"})
		return
	}

	if !roster.ValidFileName(fileHeader.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Roster file must be a .csv or .txt export",
			"file_name": fileHeader.Filename,
		})
		return
	}

	if fileHeader.Size > h.cfg.Server.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Roster file is too large"})
		return
	}

	startDate := c.PostForm("start_date")
	if mode == model.ModeCreatePackets {
		if _, err := time.Parse(startDateLayout, startDate); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
			return
		}
	}

	ctx := c.Request.Context()
	log := h.log.With().
		Str("mode", string(mode)).
		Str("file", fileHeader.Filename).
		Logger()

	file, err := fileHeader.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded roster")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable roster file"})
		return
	}
	defer file.Close()

	key := storage.RosterKey(h.cfg.Storage.S3.Prefix, fileHeader.Filename)
	if err := h.storage.Upload(ctx, key, file); err != nil {
		log.Error().Err(err).Str("s3_path", key).Msg("Failed to store roster")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store roster file"})
		return
	}

	imp := &model.Import{
		FileName:  fileHeader.Filename,
		S3Path:    key,
		Mode:      mode,
		StartDate: startDate,
		Status:    model.ImportStatusUploaded,
	}
	importID, err := h.repo.CreateImport(ctx, imp)
	if err != nil {
		log.Error().Err(err).Msg("Failed to record import")
		h.removeUpload(ctx, log, key)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	job := model.IngestionJob{
		ImportID:  importID,
		S3Path:    key,
		FileName:  fileHeader.Filename,
		Mode:      mode,
		StartDate: startDate,
	}
	if err := h.producer.EnqueueIngestionJob(ctx, job); err != nil {
		log.Error().Err(err).Int64("import_id", importID).Msg("Failed to enqueue ingestion job")
		msg := "failed to queue import"
		if uerr := h.repo.UpdateImportStatus(ctx, importID, model.ImportStatusFailed, &msg); uerr != nil {
			log.Error().Err(uerr).Int64("import_id", importID).Msg("Failed to mark import failed")
		}
		h.removeUpload(ctx, log, key)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue import"})
		return
	}

	log.Info().Int64("import_id", importID).Str("s3_path", key).Msg("Import queued")

	c.JSON(http.StatusAccepted, model.ImportAccepted{
		ImportID: importID,
		Status:   model.ImportStatusUploaded,
	})
}

// removeUpload deletes a stored roster whose import will never be processed.
func (h *Handler) removeUpload(ctx context.Context, log zerolog.Logger, key string) {
	if err := h.storage.Delete(ctx, key); err != nil {
		log.Error().Err(err).Str("s3_path", key).Msg("Failed to remove orphaned roster")
	}
}

func (h *Handler) GetImport(c *gin.Context) {
	importID, err := strconv.ParseInt(c.Param("import_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid import ID"})
		return
	}

	imp, err := h.repo.GetImport(c.Request.Context(), importID)
	if stderrors.Is(err, errors.ErrImportNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Import not found"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int64("import_id", importID).Msg("Failed to get import")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, imp)
}

func (h *Handler) ListImports(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		if n > maxListLimit {
			n = maxListLimit
		}
		limit = n
	}

	imports, err := h.repo.ListImports(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list imports")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if imports == nil {
		imports = []model.Import{}
	}

	c.JSON(http.StatusOK, gin.H{"imports": imports})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.cfg.App.Name,
		"version": h.cfg.App.Version,
	})
}
