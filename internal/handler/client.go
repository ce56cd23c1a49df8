package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// ClientStore persists clients; phones are encrypted underneath.
type ClientStore interface {
	ClientReader
	Create(ctx context.Context, name, phone string) (*model.Client, error)
	CreateMany(ctx context.Context, clients []model.Client) ([]model.Client, error)
	List(ctx context.Context, nameLike string, limit, offset int) ([]model.Client, error)
}

// ClientHandler registers and lists guests.
type ClientHandler struct {
	Clients ClientStore
}

func NewClientHandler(clients ClientStore) *ClientHandler {
	return &ClientHandler{Clients: clients}
}

type clientReq struct {
	Name  string `json:"name" validate:"required,max=120"`
	Phone string `json:"phone" validate:"required,min=7,max=20,numeric"`
}

type clientBatchReq struct {
	Clients []clientReq `json:"clients" validate:"required,min=1,max=100,dive"`
}

// Create registers one client.
func (h *ClientHandler) Create(c echo.Context) error {
	var req clientReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	cl, err := h.Clients.Create(ctx, req.Name, req.Phone)
	if err != nil {
		return internalError(c, "create client failed", err)
	}
	return c.JSON(http.StatusCreated, cl)
}

// CreateBatch registers several clients; either all are stored or none.
func (h *ClientHandler) CreateBatch(c echo.Context) error {
	var req clientBatchReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	in := make([]model.Client, 0, len(req.Clients))
	for _, r := range req.Clients {
		in = append(in, model.Client{Name: r.Name, Phone: r.Phone})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	out, err := h.Clients.CreateMany(ctx, in)
	if err != nil {
		return internalError(c, "create clients failed", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"items": out})
}

// Get returns one client with the phone decrypted.
func (h *ClientHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid client id")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	cl, err := h.Clients.GetByID(ctx, id)
	if errors.Is(err, repository.ErrClientNotFound) {
		return notFound(c, "client")
	}
	if err != nil {
		return internalError(c, "load client failed", err)
	}
	return c.JSON(http.StatusOK, cl)
}

// List returns clients, optionally filtered by ?name=.
func (h *ClientHandler) List(c echo.Context) error {
	limit, offset := queryInt(c, "limit", 100), queryInt(c, "offset", 0)
	ctx, cancel := requestCtx(c)
	defer cancel()

	items, err := h.Clients.List(ctx, c.QueryParam("name"), limit, offset)
	if err != nil {
		return internalError(c, "list clients failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
