package devapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/elimucloud/dawati/core"
	"github.com/elimucloud/dawati/core/resource"
)

type (
	resourceAPI struct {
		service *Service
		authn   *Authenticator
	}

	loginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	loginResponse struct {
		Token string `json:"token"`
	}

	transitionRequest struct {
		ID     string `json:"id" validate:"required"`
		Reason string `json:"reason,omitempty"`
		Days   int    `json:"days,omitempty"`
	}

	deleteRequest struct {
		ID string `json:"id" validate:"required"`
	}
)

func registerResourceAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *Service, authn *Authenticator) {
	api := resourceAPI{service: svc, authn: authn}

	// un-authed endpoints
	g.POST("/login", api.login)

	// authed endpoints
	ag := g.Group("", auth)
	ag.GET("/list/:kind", api.list)
	ag.GET("/get/:kind/:id", api.retrieve)

	// mutations
	mg := ag.Group("", managerMiddleware())
	mg.POST("/create/:kind", api.create)
	mg.POST("/edit/:kind", api.edit)
	mg.POST("/transition/:kind/:name", api.transition)
	mg.DELETE("/:kind", api.destroy)
}

// Handlers

func (api *resourceAPI) login(ctx echo.Context) error {
	data := new(loginRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}

	claims, err := api.authn.authenticate(data.Username, data.Password)
	if err != nil {
		return err
	}
	token, err := api.authn.GenerateToken(claims)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, loginResponse{Token: token})
}

func (api *resourceAPI) list(ctx echo.Context) error {
	kind, err := kindParam(ctx)
	if err != nil {
		return err
	}
	filter := resource.QueryFilter{
		Kind:           kind,
		IncludeDeleted: ctx.QueryParam("include_deleted") == "true",
		Search:         ctx.QueryParam("search"),
	}
	records, err := api.service.List(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *resourceAPI) retrieve(ctx echo.Context) error {
	kind, err := kindParam(ctx)
	if err != nil {
		return err
	}
	rec, err := api.service.Get(ctx.Request().Context(), kind, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *resourceAPI) create(ctx echo.Context) error {
	kind, err := kindParam(ctx)
	if err != nil {
		return err
	}
	data := new(resource.NewRecord)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	data.Kind = string(kind)
	if err := data.Validate(); err != nil {
		return err
	}

	rec, err := api.service.Create(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *resourceAPI) edit(ctx echo.Context) error {
	kind, err := kindParam(ctx)
	if err != nil {
		return err
	}
	data := new(resource.EditRecord)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	data.Kind = string(kind)
	if err := data.Validate(); err != nil {
		return err
	}

	rec, err := api.service.Edit(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *resourceAPI) transition(ctx echo.Context) error {
	kind, err := kindParam(ctx)
	if err != nil {
		return err
	}
	name := resource.Transition(ctx.Param("name"))
	if !resource.ValidTransition(name) || name == resource.TransitionCreate || name == resource.TransitionEdit {
		return errHTTPNotFound
	}

	data := new(transitionRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}

	var payload interface{}
	if name == resource.TransitionRequestLeave {
		lr := resource.LeaveRequest{Reason: data.Reason, Days: data.Days}
		if err := lr.Validate(); err != nil {
			return err
		}
		payload = lr
	}

	rec, ack, err := api.service.Transition(ctx.Request().Context(), kind, data.ID, name, payload)
	if err != nil {
		return err
	}
	if ack {
		return ctx.JSON(http.StatusOK, echo.Map{"ok": true})
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *resourceAPI) destroy(ctx echo.Context) error {
	kind, err := kindParam(ctx)
	if err != nil {
		return err
	}
	data := new(deleteRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}

	if _, _, err := api.service.Transition(ctx.Request().Context(), kind, data.ID, resource.TransitionSoftDelete, nil); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"ok": true})
}

func kindParam(ctx echo.Context) (resource.Kind, error) {
	kind := resource.Kind(ctx.Param("kind"))
	if !kind.Valid() {
		return "", errHTTPNotFound
	}
	return kind, nil
}
