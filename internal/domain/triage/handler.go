package triage

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ordenaclinic/ordenaclinic/pkg/pagination"
)

// SessionHeader names the queue a request operates on.
const SessionHeader = "X-Session-ID"

type Handler struct {
	sessions *SessionStore
}

func NewHandler(sessions *SessionStore) *Handler {
	return &Handler{sessions: sessions}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/triage-levels", h.ListLevels)

	q := api.Group("/queue")
	q.GET("", h.CurrentQueue)
	q.PUT("", h.LoadQueue)
	q.DELETE("", h.ClearQueue)
	q.POST("/patients", h.AddPatient)
	q.POST("/example", h.LoadExample)
	q.POST("/sort", h.SortQueue)
	q.GET("/disabled-flags", h.DisabledFlags)
}

// sessionID returns the caller's session, minting one when the header is
// missing or malformed. The id is always echoed back.
func sessionID(c echo.Context) string {
	id := c.Request().Header.Get(SessionHeader)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.New().String()
	}
	c.Response().Header().Set(SessionHeader, id)
	c.Set("session_id", id)
	return id
}

func (h *Handler) withSession(c echo.Context, fn func(*Service) error) error {
	err := h.sessions.WithSession(c.Request().Context(), sessionID(c), fn)
	if errors.Is(err, ErrTooManySessions) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return err
}

func (h *Handler) ListLevels(c echo.Context) error {
	return c.JSON(http.StatusOK, Levels())
}

func (h *Handler) CurrentQueue(c echo.Context) error {
	pg := pagination.FromContext(c)
	var patients []Patient
	err := h.withSession(c, func(svc *Service) error {
		var err error
		patients, err = svc.CurrentQueue(c.Request().Context())
		return err
	})
	if err != nil {
		return asHTTPError(err)
	}
	page := pagination.Page(patients, pg)
	return c.JSON(http.StatusOK, pagination.NewResponse(page, len(patients), pg.Limit, pg.Offset))
}

func (h *Handler) AddPatient(c echo.Context) error {
	var cand Candidate
	if err := c.Bind(&cand); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var p Patient
	err := h.withSession(c, func(svc *Service) error {
		var err error
		p, err = svc.Add(c.Request().Context(), cand)
		return err
	})
	if err != nil {
		return asHTTPError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) ClearQueue(c echo.Context) error {
	err := h.withSession(c, func(svc *Service) error {
		return svc.Clear(c.Request().Context())
	})
	if err != nil {
		return asHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) LoadExample(c echo.Context) error {
	var patients []Patient
	err := h.withSession(c, func(svc *Service) error {
		var err error
		patients, err = svc.LoadExample(c.Request().Context())
		return err
	})
	if err != nil {
		return asHTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, len(patients), len(patients), 0))
}

// LoadQueue replaces the queue with the dataset in the request body.
func (h *Handler) LoadQueue(c echo.Context) error {
	var body struct {
		Patients []Candidate `json:"patients"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var patients []Patient
	err := h.withSession(c, func(svc *Service) error {
		var err error
		patients, err = svc.Load(c.Request().Context(), body.Patients)
		return err
	})
	if err != nil {
		return asHTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, len(patients), len(patients), 0))
}

func (h *Handler) SortQueue(c echo.Context) error {
	var res Result
	err := h.withSession(c, func(svc *Service) error {
		var err error
		res, err = svc.SortSnapshot(c.Request().Context())
		return err
	})
	if err != nil {
		return asHTTPError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// DisabledFlags serves live form feedback. It does not touch the queue.
func (h *Handler) DisabledFlags(c echo.Context) error {
	years, err := intParam(c, "age_years")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid age_years")
	}
	months, err := intParam(c, "age_months")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid age_months")
	}
	var names []string
	if raw := c.QueryParam("flags"); raw != "" {
		names = strings.Split(raw, ",")
	}
	current, _ := ParseFlags(names)

	disabled := DisabledFlags(years, months, current)
	allowed := make([]string, 0, len(AllFlags))
	for _, f := range AllFlags {
		if !disabled.Has(f) {
			allowed = append(allowed, f.String())
		}
	}
	return c.JSON(http.StatusOK, map[string][]string{
		"disabled": disabled.Names(),
		"allowed":  allowed,
	})
}

func intParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func asHTTPError(err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, &ValidationError{Code: verr.Code, Message: err.Error()})
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
