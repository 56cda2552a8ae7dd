package ws

import (
	"encoding/json"
	"fmt"
)

// CommandType 为单通道多路复用协议的命令类型，code 取自闭集
type CommandType int

const (
	// CmdConnection 建立连接确认
	CmdConnection CommandType = 100

	// CmdHeartbeat 心跳包
	CmdHeartbeat CommandType = 110

	// CmdChatSend 聊天功能 发送
	CmdChatSend CommandType = 101

	// CmdChatWithdraw 聊天功能 撤回
	CmdChatWithdraw CommandType = 102

	// CmdDanmuSend 弹幕功能 发送
	CmdDanmuSend CommandType = 201

	// CmdSystemNotification 系统通知
	CmdSystemNotification CommandType = 401

	// CmdError 错误响应
	CmdError CommandType = -1
)

// MatchCommand 将 code 解析为命令类型，未知 code 归入 CmdError
func MatchCommand(code int) CommandType {
	switch CommandType(code) {
	case CmdConnection, CmdHeartbeat, CmdChatSend, CmdChatWithdraw, CmdDanmuSend, CmdSystemNotification:
		return CommandType(code)
	default:
		return CmdError
	}
}

// Command 统一的 WebSocket 消息格式：code 标识消息类型，content 承载类型相关的 JSON 负载
// PeerID 仅私聊发送时可选携带，显式指明目标用户
type Command struct {
	Code    int    `json:"code"`
	Content string `json:"content"`
	PeerID  int64  `json:"peer_id,omitempty"`
}

// ParseCommand 解析入站帧；无法解析时返回错误，由调用方回 ERROR 响应
func ParseCommand(raw []byte) (*Command, error) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return nil, fmt.Errorf("解析消息帧失败: %w", err)
	}
	return &cmd, nil
}

// Type 当前命令的类型，未知 code 归入 CmdError
func (c *Command) Type() CommandType {
	return MatchCommand(c.Code)
}

func NewCommand(t CommandType, content string) Command {
	return Command{Code: int(t), Content: content}
}

// ErrorCommand 构造错误响应
func ErrorCommand(message string) Command {
	return Command{Code: int(CmdError), Content: message}
}

// ConnectionAck 构造连接确认
func ConnectionAck() Command {
	return Command{Code: int(CmdConnection), Content: "连接成功"}
}

// HeartbeatReply 心跳响应
func HeartbeatReply() Command {
	return Command{Code: int(CmdHeartbeat), Content: "pong"}
}
