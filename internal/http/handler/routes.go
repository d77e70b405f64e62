package handler

import (
	"context"
	"database/sql"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"dossierapi/internal/http/middleware"
	"dossierapi/internal/identity"
	"dossierapi/internal/model"
	"dossierapi/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Handlers
// stay thin: parse, delegate to the service, translate errors.
//
// When resolver is nil the API runs without authentication; that mode is
// meant for local development only.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.DossierService, resolver identity.Resolver) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/")
	var accountant, client fiber.Handler
	if resolver != nil {
		api.Use(middleware.Auth(resolver))
		accountant = middleware.RequireRole(identity.RoleAccountant)
		client = middleware.RequireRole(identity.RoleClient)
	} else {
		pass := func(c *fiber.Ctx) error { return c.Next() }
		accountant, client = pass, pass
	}

	api.Post("/dossiers", accountant, CreateDossier(svc))
	api.Post("/dossiers/batch", accountant, CreateDossiersBatch(svc))
	api.Get("/dossiers", ListDossiers(svc))
	api.Get("/dossiers/:id", GetDossier(svc))
	api.Get("/dossiers/:id/progress", GetProgress(svc))
	api.Post("/dossiers/:id/finalize", accountant, FinalizeDossier(svc))

	api.Post("/requests/:id/uploads", client, SubmitUploads(svc))

	api.Post("/uploads/:id/decision", accountant, DecideUpload(svc))
	api.Get("/uploads/:id/url", UploadURL(svc))
}

// HealthCheck reports readiness: the database must answer a ping.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a bare liveness endpoint.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

type createDossierRequest struct {
	ClientID string                  `json:"client_id"`
	DueDate  *time.Time              `json:"due_date,omitempty"`
	Requests []model.RequestTemplate `json:"requests"`
}

// CreateDossier opens one dossier for a client from a request-template list.
// The acting accountant comes from the bearer token.
func CreateDossier(svc service.DossierService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body createDossierRequest
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}

		d, err := svc.Create(c.UserContext(), body.ClientID, actorID(c), body.DueDate, body.Requests)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(d)
	}
}

type createBatchRequest struct {
	ClientIDs []string                `json:"client_ids"`
	DueDate   *time.Time              `json:"due_date,omitempty"`
	Requests  []model.RequestTemplate `json:"requests"`
}

// CreateDossiersBatch opens one dossier per client with the same template
// list. Per-client failures do not abort the batch; the response reports
// successes and failures side by side.
func CreateDossiersBatch(svc service.DossierService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body createBatchRequest
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}

		res, err := svc.CreateBatch(c.UserContext(), body.ClientIDs, actorID(c), body.DueDate, body.Requests)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// ListDossiers lists a client's dossiers with limit & offset. Clients are
// always scoped to their own dossiers; accountants pass client_id.
func ListDossiers(svc service.DossierService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		clientID := c.Query("client_id")
		if actor, ok := middleware.ActorFromCtx(c); ok && actor.Role == identity.RoleClient {
			clientID = actor.ID
		}
		if clientID == "" {
			return writeError(c, fiber.StatusBadRequest, "CLIENT_ID_REQUIRED", "client_id is required")
		}

		res, err := svc.List(c.UserContext(), clientID, limit, offset)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(res)
	}
}

// GetDossier returns the full dossier aggregate by ID.
func GetDossier(svc service.DossierService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(d)
	}
}

// GetProgress returns the persisted progress counters for a dossier.
func GetProgress(svc service.DossierService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := svc.Progress(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(p)
	}
}

// SubmitUploads receives one or more files (multipart/form-data, field name:
// files) against a document request. A batch the quota refuses entirely maps
// to 409; a partially accepted one returns the recorded uploads plus the
// quota detail.
func SubmitUploads(svc service.DossierService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILES_REQUIRED", "multipart form with files is required")
		}
		headers := form.File["files"]
		if len(headers) == 0 {
			return writeError(c, fiber.StatusBadRequest, "FILES_REQUIRED", "at least one file is required")
		}

		files := make([]service.FileInput, 0, len(headers))
		var opened []multipart.File
		defer func() {
			for _, f := range opened {
				f.Close()
			}
		}()
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			opened = append(opened, f)

			ct := fh.Header.Get("Content-Type")
			if ct == "" {
				ct = "application/octet-stream"
			}
			files = append(files, service.FileInput{
				Reader:      f,
				Filename:    fh.Filename,
				ContentType: ct,
				Size:        fh.Size,
			})
		}

		res, err := svc.SubmitUploads(c.UserContext(), c.Params("id"), actorID(c), files)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

type decisionRequest struct {
	Decision model.Decision `json:"decision"`
	Comment  string         `json:"comment,omitempty"`
}

// DecideUpload applies an accountant's APPROVE or REJECT decision to an upload.
func DecideUpload(svc service.DossierService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body decisionRequest
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		if body.Decision != model.DecisionApprove && body.Decision != model.DecisionReject {
			return writeError(c, fiber.StatusBadRequest, "INVALID_DECISION", "decision must be APPROVE or REJECT")
		}

		up, err := svc.DecideUpload(c.UserContext(), c.Params("id"), actorID(c), body.Decision, body.Comment)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(up)
	}
}

type finalizeRequest struct {
	Comment string `json:"comment,omitempty"`
}

// FinalizeDossier archives a COMPLETE dossier as VALIDATED.
func FinalizeDossier(svc service.DossierService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body finalizeRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
			}
		}

		d, err := svc.Finalize(c.UserContext(), c.Params("id"), actorID(c), body.Comment)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(d)
	}
}

// UploadURL returns a presigned, time-limited download URL for an upload.
func UploadURL(svc service.DossierService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		url, err := svc.UploadURL(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(fiber.Map{"url": url})
	}
}

func actorID(c *fiber.Ctx) string {
	actor, _ := middleware.ActorFromCtx(c)
	return actor.ID
}
