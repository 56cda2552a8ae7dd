package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"clipwave/internal/service/danmu"
)

type DanmuHandler struct {
	svc *danmu.Service
}

func NewDanmuHandler(svc *danmu.Service) *DanmuHandler {
	return &DanmuHandler{svc: svc}
}

// List 查询某视频的全部已过审弹幕；可选 date=YYYY-MM-DD 按发送日期过滤
func (h *DanmuHandler) List(c *gin.Context) {
	vid, err := strconv.ParseInt(c.Param("vid"), 10, 64)
	if err != nil || vid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "非法的视频ID"})
		return
	}

	if dateStr := c.Query("date"); dateStr != "" {
		day, perr := time.ParseInLocation("2006-01-02", dateStr, time.Local)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "非法的日期格式"})
			return
		}
		list, qerr := h.svc.ListByVidAndDate(vid, day)
		if qerr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "查询弹幕失败"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"list": list})
		return
	}

	list, err := h.svc.ListByVid(vid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询弹幕失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}
