package orch

import (
	"github.com/dkeye/Desk/internal/domain"
)

// Outbound message types of the control surface.
const (
	TypeState      = "state"
	TypeMetrics    = "metrics"
	TypeNotice     = "notice"
	TypeFullscreen = "fullscreen"
)

type StateMessage struct {
	Type    string             `json:"type"`
	Session domain.SessionInfo `json:"session"`
}

func NewStateMessage(info domain.SessionInfo) StateMessage {
	return StateMessage{Type: TypeState, Session: info}
}

type MetricsMessage struct {
	Type    string                `json:"type"`
	Metrics domain.QualityMetrics `json:"metrics"`
}

func NewMetricsMessage(m domain.QualityMetrics) MetricsMessage {
	return MetricsMessage{Type: TypeMetrics, Metrics: m}
}

type NoticeMessage struct {
	Type string `json:"type"`
	domain.Notice
}

func NewNoticeMessage(n domain.Notice) NoticeMessage {
	return NoticeMessage{Type: TypeNotice, Notice: n}
}

// FullscreenMessage asks the viewer to enter or leave fullscreen.
type FullscreenMessage struct {
	Type  string `json:"type"`
	Enter bool   `json:"enter"`
}
