package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/elixirtrials/elixirtrials/ent"
	"github.com/elixirtrials/elixirtrials/ent/criteriabatch"
	"github.com/elixirtrials/elixirtrials/ent/protocol"
	"github.com/elixirtrials/elixirtrials/pkg/export"
	"github.com/elixirtrials/elixirtrials/pkg/outbox"
)

// archivalAge is how long a protocol sits in a terminal status before
// getProtocolHandler lazily marks it archived on read.
const archivalAge = 7 * 24 * time.Hour

var terminalProtocolStatuses = map[protocol.Status]bool{
	protocol.StatusReviewed:         true,
	protocol.StatusApproved:         true,
	protocol.StatusRejected:         true,
	protocol.StatusExtractionFailed: true,
	protocol.StatusGroundingFailed:  true,
	protocol.StatusPipelineFailed:   true,
	protocol.StatusDeadLetter:       true,
}

// uploadProtocolHandler reserves a protocol row and hands back a place to
// upload the PDF to. The storage adapter itself only fetches (Adapter has
// no upload-URL method), so this handler synthesizes upload_url directly
// from the local/signed mode the server was configured with.
func (s *Server) uploadProtocolHandler(c *gin.Context) {
	var req uploadProtocolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	protocolID := uuid.NewString()
	var uploadURL, fileURI string
	if s.localMode {
		fileURI = fmt.Sprintf("local://%s.pdf", protocolID)
		uploadURL = fileURI
	} else {
		fileURI = fmt.Sprintf("s3://elixirtrials-protocols/%s.pdf", protocolID)
		uploadURL = fmt.Sprintf("https://storage.elixirtrials.invalid/uploads/%s?signature=stub", protocolID)
	}

	_, err := s.client.Protocol.Create().
		SetID(protocolID).
		SetTitle(req.Title).
		SetFileURI(fileURI).
		SetStatus(protocol.StatusUploaded).
		Save(c.Request.Context())
	if err != nil {
		writeServiceError(c, fmt.Errorf("create protocol: %w", err))
		return
	}

	c.JSON(http.StatusCreated, uploadProtocolResponse{ProtocolID: protocolID, UploadURL: uploadURL})
}

// confirmUploadHandler finalizes an upload by publishing protocol_uploaded,
// which the pipeline worker consumes to start ingest. The protocol row
// itself was already created by uploadProtocolHandler; this step exists so
// the pipeline doesn't start racing an upload still in flight.
func (s *Server) confirmUploadHandler(c *gin.Context) {
	var req confirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "protocol_id is required"})
		return
	}

	ctx := c.Request.Context()
	row, err := s.client.Protocol.Get(ctx, req.ProtocolID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	tx, err := s.client.Tx(ctx)
	if err != nil {
		writeServiceError(c, fmt.Errorf("begin confirm-upload transaction: %w", err))
		return
	}
	defer func() { _ = tx.Rollback() }()

	if err := outbox.PublishProtocolUploaded(ctx, tx, row.ID, row.FileURI); err != nil {
		writeServiceError(c, err)
		return
	}
	if err := tx.Commit(); err != nil {
		writeServiceError(c, fmt.Errorf("commit confirm-upload transaction: %w", err))
		return
	}

	c.JSON(http.StatusAccepted, acceptedResponse{ProtocolID: row.ID, Status: "queued"})
}

// listProtocolsHandler lists protocols newest first, optionally filtered
// by ?status=. It does not apply lazy archival itself — that only fires
// on a single protocol's detail read.
func (s *Server) listProtocolsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	query := s.client.Protocol.Query().Order(ent.Desc(protocol.FieldCreatedAt))

	if status := c.Query("status"); status != "" {
		query = query.Where(protocol.StatusEQ(protocol.Status(status)))
	}

	rows, err := query.All(ctx)
	if err != nil {
		writeServiceError(c, fmt.Errorf("list protocols: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"protocols": rows})
}

// getProtocolHandler fetches one protocol and lazily archives it if its
// status has sat terminal for more than archivalAge. updated_at is used
// as the terminal-state age proxy: Protocol carries no dedicated
// "became terminal at" column, and nothing updates a protocol row again
// once it reaches a terminal status, so updated_at already marks that
// transition's time.
func (s *Server) getProtocolHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	row, err := s.client.Protocol.Get(ctx, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	if row.ArchivedAt == nil && terminalProtocolStatuses[row.Status] && time.Since(row.UpdatedAt) > archivalAge {
		now := time.Now()
		updated, err := row.Update().SetArchivedAt(now).Save(ctx)
		if err != nil {
			writeServiceError(c, fmt.Errorf("lazily archive protocol %s: %w", id, err))
			return
		}
		row = updated
	}

	c.JSON(http.StatusOK, row)
}

// listProtocolBatchesHandler lists every batch (archived and active) for
// a protocol, oldest first, so the UI can render re-extraction history.
func (s *Server) listProtocolBatchesHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	rows, err := s.client.CriteriaBatch.Query().
		Where(criteriabatch.ProtocolID(id)).
		Order(ent.Asc(criteriabatch.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		writeServiceError(c, fmt.Errorf("list batches for protocol %s: %w", id, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": rows})
}

// reextractProtocolHandler only publishes reextraction_requested; it does
// not call reextract.Service.Trigger inline. Trigger re-runs the entire
// pipeline synchronously, which would turn this endpoint into a
// multi-minute request — the outbox worker pool calls Trigger out of
// band once it consumes the event, the same way protocol_uploaded never
// runs ingest on the request goroutine that confirmed the upload.
func (s *Server) reextractProtocolHandler(c *gin.Context) {
	var req reextractRequest
	_ = c.ShouldBindJSON(&req)

	ctx := c.Request.Context()
	id := c.Param("id")

	if _, err := s.client.Protocol.Get(ctx, id); err != nil {
		writeServiceError(c, err)
		return
	}

	tx, err := s.client.Tx(ctx)
	if err != nil {
		writeServiceError(c, fmt.Errorf("begin reextract transaction: %w", err))
		return
	}
	defer func() { _ = tx.Rollback() }()

	if err := outbox.PublishReextractionRequested(ctx, tx, id, req.Reason); err != nil {
		writeServiceError(c, err)
		return
	}
	if err := tx.Commit(); err != nil {
		writeServiceError(c, fmt.Errorf("commit reextract transaction: %w", err))
		return
	}

	c.JSON(http.StatusAccepted, acceptedResponse{ProtocolID: id, Status: "queued"})
}

// exportProtocolHandler renders the protocol's active criteria batch in
// one of the three downstream formats. ?format= defaults to circe.
func (s *Server) exportProtocolHandler(c *gin.Context) {
	format := export.Format(c.DefaultQuery("format", string(export.FormatCirce)))

	body, err := s.exporter.Export(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.String(http.StatusOK, body)
}
