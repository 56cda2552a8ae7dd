package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"clipwave/internal/server/userinfo"
)

var errSockClosed = errors.New("connection closed")

// fakeSock 可脚本化的假连接：预先灌入入站帧，记录全部出站帧
type fakeSock struct {
	mu         sync.Mutex
	inbound    chan []byte
	sent       [][]byte
	failWrites bool
	closed     bool
}

func newFakeSock(frames ...[]byte) *fakeSock {
	s := &fakeSock{inbound: make(chan []byte, len(frames)+1)}
	for _, f := range frames {
		s.inbound <- f
	}
	close(s.inbound)
	return s
}

func (s *fakeSock) ReadMessage() (int, []byte, error) {
	data, ok := <-s.inbound
	if !ok {
		return 0, nil, errSockClosed
	}
	return websocket.TextMessage, data, nil
}

func (s *fakeSock) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites || s.closed {
		return errSockClosed
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.sent = append(s.sent, cp)
	return nil
}

func (s *fakeSock) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// sentCommands 把出站帧解码为命令序列
func (s *fakeSock) sentCommands(t *testing.T) []Command {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Command, 0, len(s.sent))
	for _, raw := range s.sent {
		var cmd Command
		require.NoError(t, json.Unmarshal(raw, &cmd))
		out = append(out, cmd)
	}
	return out
}

func (s *fakeSock) sentRaw() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.sent))
	copy(out, s.sent)
	return out
}

func mustFrame(t *testing.T, cmd Command) []byte {
	t.Helper()
	b, err := json.Marshal(cmd)
	require.NoError(t, err)
	return b
}

func payloadFrame(t *testing.T, code CommandType, payload interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return mustFrame(t, Command{Code: int(code), Content: string(b)})
}

// ---- 假持久层 ----

type chatAppendCall struct {
	senderID, receiverID int64
	content              string
}

type fakeChatStore struct {
	mu            sync.Mutex
	appends       []chatAppendCall
	appendErr     error
	nextID        int64
	withdrawOK    bool
	withdrawErr   error
	withdrawCalls []int64
}

func (f *fakeChatStore) Append(senderID, receiverID int64, content string, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return 0, f.appendErr
	}
	f.appends = append(f.appends, chatAppendCall{senderID, receiverID, content})
	f.nextID++
	return f.nextID, nil
}

func (f *fakeChatStore) MarkWithdrawn(messageID, requesterID int64, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.withdrawCalls = append(f.withdrawCalls, messageID)
	if f.withdrawErr != nil {
		return false, f.withdrawErr
	}
	return f.withdrawOK, nil
}

func (f *fakeChatStore) appendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appends)
}

type danmuAppendCall struct {
	vid, senderID int64
	content       string
	timePoint     float64
	mode          int
	color         string
}

type fakeDanmuStore struct {
	mu        sync.Mutex
	appends   []danmuAppendCall
	appendErr error
}

func (f *fakeDanmuStore) Append(vid, senderID int64, content string, timePoint float64, mode int, color string, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return 0, f.appendErr
	}
	f.appends = append(f.appends, danmuAppendCall{vid, senderID, content, timePoint, mode, color})
	return int64(len(f.appends)), nil
}

func (f *fakeDanmuStore) appendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appends)
}

type fakeProfiles struct {
	profiles map[int64]*userinfo.PublicProfile
}

func (f *fakeProfiles) GetPublicProfile(uid int64) (*userinfo.PublicProfile, error) {
	if f.profiles == nil {
		return nil, nil
	}
	return f.profiles[uid], nil
}

func profileSet(users ...int64) *fakeProfiles {
	m := make(map[int64]*userinfo.PublicProfile, len(users))
	names := map[int64]string{1: "alice", 2: "bob", 3: "carol"}
	for _, uid := range users {
		m[uid] = &userinfo.PublicProfile{UID: uid, Nickname: names[uid]}
	}
	return &fakeProfiles{profiles: m}
}
