package handler

import (
	"pengpeng/internal/middleware"
	"pengpeng/internal/model"
	"pengpeng/internal/service"
	"pengpeng/pkg/response"

	"github.com/gin-gonic/gin"
)

type MeetHandler struct {
	service *service.MeetService
}

func NewMeetHandler(s *service.MeetService) *MeetHandler {
	return &MeetHandler{service: s}
}

// descriptorReq 特征描述的公共请求体
type descriptorReq struct {
	Sex          string `json:"sex" binding:"required,oneof=男 女"`
	Hair         string `json:"hair" binding:"required"`
	Glasses      string `json:"glasses" binding:"required"`
	ClothesType  string `json:"clothesType" binding:"required"`
	ClothesColor string `json:"clothesColor" binding:"required"`
	ClothesStyle string `json:"clothesStyle" binding:"required"`
}

func (r descriptorReq) appearance() model.Appearance {
	return model.Appearance{
		Sex:          r.Sex,
		Hair:         r.Hair,
		Glasses:      r.Glasses,
		ClothesType:  r.ClothesType,
		ClothesColor: r.ClothesColor,
		ClothesStyle: r.ClothesStyle,
	}
}

func candidateInfos(candidates []model.Candidate) []response.CandidateInfo {
	out := make([]response.CandidateInfo, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, response.CandidateInfo{
			Username:   cand.Username,
			SpecialPic: cand.SpecialPic,
			Score:      cand.Score,
		})
	}
	return out
}

// CreateMeetSearchTarget 按特征描述检索附近候选人
func (h *MeetHandler) CreateMeetSearchTarget(c *gin.Context) {
	var r descriptorReq
	if err := bindJSON(c, &r); err != nil {
		fail(c, err)
		return
	}
	user := middleware.GetUser(c)
	candidates, err := h.service.FindCandidates(c.Request.Context(), user, r.appearance())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, candidateInfos(candidates))
}

// ConfirmMeetSearchTarget 用已存开放meet的描述重新检索候选人
func (h *MeetHandler) ConfirmMeetSearchTarget(c *gin.Context) {
	type req struct {
		MeetID string `json:"meetId" binding:"required"`
	}
	var r req
	if err := bindJSON(c, &r); err != nil {
		fail(c, err)
		return
	}
	id, err := parseMeetID(r.MeetID)
	if err != nil {
		fail(c, err)
		return
	}
	user := middleware.GetUser(c)
	candidates, err := h.service.CandidatesForOpenMeet(c.Request.Context(), user, id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, candidateInfos(candidates))
}

// CreateMeetNo 创建开放meet（“不在其中”，只有目标描述）
func (h *MeetHandler) CreateMeetNo(c *gin.Context) {
	type req struct {
		MapLocName    string `json:"mapLocName" binding:"required"`
		MapLocUID     string `json:"mapLocUid" binding:"required"`
		MapLocAddress string `json:"mapLocAddress"`
		descriptorReq
	}
	var r req
	if err := bindJSON(c, &r); err != nil {
		fail(c, err)
		return
	}
	user := middleware.GetUser(c)
	mapLoc := model.MapLoc{Name: r.MapLocName, Address: r.MapLocAddress, UID: r.MapLocUID}
	meet, err := h.service.CreateOpen(c.Request.Context(), user, mapLoc, r.appearance())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, meet)
}

// CreateMeetClickTarget 对指定用户创建meet
func (h *MeetHandler) CreateMeetClickTarget(c *gin.Context) {
	type req struct {
		Username      string `json:"username" binding:"required"`
		MapLocName    string `json:"mapLocName" binding:"required"`
		MapLocUID     string `json:"mapLocUid" binding:"required"`
		MapLocAddress string `json:"mapLocAddress"`
	}
	var r req
	if err := bindJSON(c, &r); err != nil {
		fail(c, err)
		return
	}
	user := middleware.GetUser(c)
	mapLoc := model.MapLoc{Name: r.MapLocName, Address: r.MapLocAddress, UID: r.MapLocUID}
	meet, err := h.service.CreateTargeted(c.Request.Context(), user, mapLoc, r.Username)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, meet)
}

// ConfirmMeetClickTarget 创建者把选中目标绑定到自己的开放meet
func (h *MeetHandler) ConfirmMeetClickTarget(c *gin.Context) {
	type req struct {
		Username string `json:"username" binding:"required"`
		MeetID   string `json:"meetId" binding:"required"`
	}
	var r req
	if err := bindJSON(c, &r); err != nil {
		fail(c, err)
		return
	}
	id, err := parseMeetID(r.MeetID)
	if err != nil {
		fail(c, err)
		return
	}
	user := middleware.GetUser(c)
	meet, err := h.service.ConfirmOpen(c.Request.Context(), user, id, r.Username)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, meet)
}

// ReplyMeetSearchTarget 目标方凭特征描述猜测创建者
func (h *MeetHandler) ReplyMeetSearchTarget(c *gin.Context) {
	type req struct {
		MeetID string `json:"meetId" binding:"required"`
		descriptorReq
	}
	var r req
	if err := bindJSON(c, &r); err != nil {
		fail(c, err)
		return
	}
	id, err := parseMeetID(r.MeetID)
	if err != nil {
		fail(c, err)
		return
	}
	user := middleware.GetUser(c)
	outcome, err := h.service.ReplyWithAttributeMatch(c.Request.Context(), user, id, r.appearance())
	if err != nil {
		fail(c, err)
		return
	}
	if !outcome.Matched {
		response.SuccessWithMessage(c, "特征信息不匹配!", nil)
		return
	}
	entries := make([]response.ReplyEntry, 0, len(outcome.Cards))
	for _, card := range outcome.Cards {
		entries = append(entries, response.ReplyEntry{Username: card.Username, SpecialPic: card.SpecialPic})
	}
	response.Success(c, entries)
}

// ReplyMeetClickTarget 目标方直接指认创建者
func (h *MeetHandler) ReplyMeetClickTarget(c *gin.Context) {
	type req struct {
		Username string `json:"username" binding:"required"`
		MeetID   string `json:"meetId" binding:"required"`
	}
	var r req
	if err := bindJSON(c, &r); err != nil {
		fail(c, err)
		return
	}
	id, err := parseMeetID(r.MeetID)
	if err != nil {
		fail(c, err)
		return
	}
	user := middleware.GetUser(c)
	if _, err := h.service.ConfirmByDirectSelection(c.Request.Context(), user, id, r.Username); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// ReadMeet 清除未读标记，两侧独立，都未命中也是成功
func (h *MeetHandler) ReadMeet(c *gin.Context) {
	type req struct {
		MeetID string `json:"meetId" binding:"required"`
	}
	var r req
	if err := bindJSON(c, &r); err != nil {
		fail(c, err)
		return
	}
	id, err := parseMeetID(r.MeetID)
	if err != nil {
		fail(c, err)
		return
	}
	user := middleware.GetUser(c)
	result, err := h.service.MarkRead(c.Request.Context(), user, id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, &response.ReadMeetResponse{Creater: result.Creater, Target: result.Target})
}
