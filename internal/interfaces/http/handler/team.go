package handler

import (
	"context"

	identityapp "github.com/fulfildesk/backend/internal/application/identity"
	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TeamHandler handles reseller team and membership endpoints
type TeamHandler struct {
	BaseHandler
	teamService *identityapp.TeamService
}

// NewTeamHandler creates a new TeamHandler
func NewTeamHandler(teamService *identityapp.TeamService) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
	}
}

// Create godoc
// @Summary      Create a team
// @Description  Owners create a reseller team together with its first admin
// @Tags         teams
// @Accept       json
// @Produce      json
// @Param        request body identityapp.CreateTeamRequest true "Team creation request"
// @Success      201 {object} dto.Response{data=identityapp.TeamResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /teams [post]
func (h *TeamHandler) Create(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req identityapp.CreateTeamRequest
	if !h.bindJSON(c, &req) {
		return
	}

	team, err := h.teamService.Create(c.Request.Context(), p, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, team)
}

// Get godoc
// @Summary      Get a team
// @Tags         teams
// @Produce      json
// @Param        id path string true "Team ID" format(uuid)
// @Success      200 {object} dto.Response{data=identityapp.TeamResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /teams/{id} [get]
func (h *TeamHandler) Get(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	team, err := h.teamService.Get(c.Request.Context(), p, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, team)
}

// List godoc
// @Summary      List teams
// @Tags         teams
// @Produce      json
// @Param        search query string false "Name contains"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]identityapp.TeamResponse,meta=dto.Meta}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /teams [get]
func (h *TeamHandler) List(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	req := dto.DefaultListRequest()
	if !h.bindQuery(c, &req) {
		return
	}
	filter := req.ToFilter()

	teams, total, err := h.teamService.List(c.Request.Context(), p, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, teams, total, filter.Page, filter.PageSize)
}

// Rename godoc
// @Summary      Rename a team
// @Tags         teams
// @Accept       json
// @Produce      json
// @Param        id path string true "Team ID" format(uuid)
// @Param        request body identityapp.RenameTeamRequest true "New name"
// @Success      200 {object} dto.Response{data=identityapp.TeamResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /teams/{id} [put]
func (h *TeamHandler) Rename(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req identityapp.RenameTeamRequest
	if !h.bindJSON(c, &req) {
		return
	}

	team, err := h.teamService.Rename(c.Request.Context(), p, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, team)
}

// Invite godoc
// @Summary      Invite a reseller
// @Description  Team admins (or owners) invite a reseller user; the membership stays pending until accepted
// @Tags         teams
// @Accept       json
// @Produce      json
// @Param        id path string true "Team ID" format(uuid)
// @Param        request body identityapp.InviteMemberRequest true "Invitation"
// @Success      201 {object} dto.Response{data=identityapp.MemberResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /teams/{id}/members [post]
func (h *TeamHandler) Invite(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	teamID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req identityapp.InviteMemberRequest
	if !h.bindJSON(c, &req) {
		return
	}

	member, err := h.teamService.Invite(c.Request.Context(), p, teamID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, member)
}

// ListMembers godoc
// @Summary      List team members
// @Tags         teams
// @Produce      json
// @Param        id path string true "Team ID" format(uuid)
// @Param        status query string false "Membership status"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]identityapp.MemberResponse,meta=dto.Meta}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /teams/{id}/members [get]
func (h *TeamHandler) ListMembers(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	teamID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var filter identityapp.MemberListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	members, total, err := h.teamService.ListMembers(c.Request.Context(), p, teamID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageArgs(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, members, total, page, pageSize)
}

// MyMemberships godoc
// @Summary      List own memberships
// @Description  Every membership of the caller, including pending invitations
// @Tags         memberships
// @Produce      json
// @Success      200 {object} dto.Response{data=[]identityapp.MemberResponse}
// @Security     BearerAuth
// @Router       /memberships/mine [get]
func (h *TeamHandler) MyMemberships(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	members, err := h.teamService.MyMemberships(c.Request.Context(), p)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, members)
}

type membershipAction func(ctx context.Context, p identity.Principal, membershipID uuid.UUID) (*identityapp.MemberResponse, error)

func (h *TeamHandler) membership(c *gin.Context, action membershipAction) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	member, err := action(c.Request.Context(), p, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, member)
}

// Accept godoc
// @Summary      Accept an invitation
// @Description  The invitee joins the team; other memberships of the user are deactivated
// @Tags         memberships
// @Produce      json
// @Param        id path string true "Membership ID" format(uuid)
// @Success      200 {object} dto.Response{data=identityapp.MemberResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /memberships/{id}/accept [post]
func (h *TeamHandler) Accept(c *gin.Context) {
	h.membership(c, h.teamService.Accept)
}

// Suspend godoc
// @Summary      Suspend a member
// @Tags         memberships
// @Produce      json
// @Param        id path string true "Membership ID" format(uuid)
// @Success      200 {object} dto.Response{data=identityapp.MemberResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /memberships/{id}/suspend [post]
func (h *TeamHandler) Suspend(c *gin.Context) {
	h.membership(c, h.teamService.Suspend)
}

// Reinstate godoc
// @Summary      Reinstate a suspended member
// @Tags         memberships
// @Produce      json
// @Param        id path string true "Membership ID" format(uuid)
// @Success      200 {object} dto.Response{data=identityapp.MemberResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /memberships/{id}/reinstate [post]
func (h *TeamHandler) Reinstate(c *gin.Context) {
	h.membership(c, h.teamService.Reinstate)
}

// Block godoc
// @Summary      Block a member
// @Tags         memberships
// @Produce      json
// @Param        id path string true "Membership ID" format(uuid)
// @Success      200 {object} dto.Response{data=identityapp.MemberResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /memberships/{id}/block [post]
func (h *TeamHandler) Block(c *gin.Context) {
	h.membership(c, h.teamService.Block)
}

// Unblock godoc
// @Summary      Unblock a member
// @Tags         memberships
// @Produce      json
// @Param        id path string true "Membership ID" format(uuid)
// @Success      200 {object} dto.Response{data=identityapp.MemberResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /memberships/{id}/unblock [post]
func (h *TeamHandler) Unblock(c *gin.Context) {
	h.membership(c, h.teamService.Unblock)
}

// ChangeRole godoc
// @Summary      Change a member's role
// @Tags         memberships
// @Accept       json
// @Produce      json
// @Param        id path string true "Membership ID" format(uuid)
// @Param        request body identityapp.ChangeMemberRoleRequest true "New role"
// @Success      200 {object} dto.Response{data=identityapp.MemberResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /memberships/{id}/role [put]
func (h *TeamHandler) ChangeRole(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req identityapp.ChangeMemberRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	member, err := h.teamService.ChangeRole(c.Request.Context(), p, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, member)
}
