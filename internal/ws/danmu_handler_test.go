package ws

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDanmuFixture(store *fakeDanmuStore) (*DanmuHandler, *DanmuRegistry) {
	registry := NewDanmuRegistry()
	h := NewDanmuHandler(registry, nil, store)
	return h, registry
}

// joinViewer 把一个观众挂进房间，返回其假连接
func joinViewer(registry *DanmuRegistry, vid int64) *fakeSock {
	sock := newFakeSock()
	conn := NewConn(sock)
	conn.VID = vid
	registry.Join(vid, conn)
	return sock
}

func danmuFrame(t *testing.T, content string, timePoint float64) []byte {
	t.Helper()
	return payloadFrame(t, CmdDanmuSend, DanmuSendPayload{Content: content, TimePoint: &timePoint, Mode: 1, Color: "#FFFFFF"})
}

// danmuRawFrames 过滤出成员收到的弹幕原帧（排除人数通知）
func danmuRawFrames(t *testing.T, sock *fakeSock) [][]byte {
	t.Helper()
	var out [][]byte
	for _, raw := range sock.sentRaw() {
		var cmd Command
		require.NoError(t, json.Unmarshal(raw, &cmd))
		if cmd.Type() == CmdDanmuSend {
			out = append(out, raw)
		}
	}
	return out
}

func TestDanmuBroadcastIncludesSender(t *testing.T) {
	store := &fakeDanmuStore{}
	h, registry := newDanmuFixture(store)
	viewerA := joinViewer(registry, 42)
	viewerB := joinViewer(registry, 42)

	frame := danmuFrame(t, "前方高能", 13.5)
	sender := newFakeSock(frame)
	h.ServeConn(sender, 42, 1)

	// 落库恰好一次
	require.Equal(t, 1, store.appendCount())
	call := store.appends[0]
	assert.Equal(t, int64(42), call.vid)
	assert.Equal(t, int64(1), call.senderID)
	assert.Equal(t, "前方高能", call.content)
	assert.Equal(t, 13.5, call.timePoint)

	// 三个成员（含发送者自身）都收到同一条原帧
	for _, sock := range []*fakeSock{viewerA, viewerB, sender} {
		frames := danmuRawFrames(t, sock)
		require.Len(t, frames, 1)
		assert.Equal(t, frame, frames[0])
	}
}

func TestDanmuBroadcastFailingMemberDoesNotBlockOthers(t *testing.T) {
	store := &fakeDanmuStore{}
	h, registry := newDanmuFixture(store)
	broken := joinViewer(registry, 42)
	broken.failWrites = true
	healthy := joinViewer(registry, 42)

	frame := danmuFrame(t, "弹幕", 1)
	sender := newFakeSock(frame)
	h.ServeConn(sender, 42, 1)

	require.Equal(t, 1, store.appendCount())
	assert.Empty(t, danmuRawFrames(t, broken))
	require.Len(t, danmuRawFrames(t, healthy), 1)
	require.Len(t, danmuRawFrames(t, sender), 1)
}

func TestDanmuAnonymousSenderRejected(t *testing.T) {
	store := &fakeDanmuStore{}
	h, _ := newDanmuFixture(store)

	sender := newFakeSock(danmuFrame(t, "匿名弹幕", 1))
	h.ServeConn(sender, 42, 0)

	assert.Equal(t, 0, store.appendCount())
	cmds := sender.sentCommands(t)
	var sawError bool
	for _, cmd := range cmds {
		if cmd.Code == int(CmdError) {
			sawError = true
		}
	}
	assert.True(t, sawError, "匿名发送应收到 ERROR")
}

func TestDanmuPersistFailureAbortsBroadcast(t *testing.T) {
	store := &fakeDanmuStore{appendErr: errors.New("db down")}
	h, registry := newDanmuFixture(store)
	viewer := joinViewer(registry, 42)

	sender := newFakeSock(danmuFrame(t, "弹幕", 1))
	h.ServeConn(sender, 42, 1)

	assert.Empty(t, danmuRawFrames(t, viewer))
	assert.Empty(t, danmuRawFrames(t, sender))
	cmds := sender.sentCommands(t)
	assert.Equal(t, int(CmdError), cmds[len(cmds)-1].Code)
}

func TestDanmuHeartbeat(t *testing.T) {
	store := &fakeDanmuStore{}
	h, _ := newDanmuFixture(store)

	sender := newFakeSock(mustFrame(t, Command{Code: int(CmdHeartbeat), Content: "ping"}))
	h.ServeConn(sender, 42, 0)

	var sawPong bool
	for _, cmd := range sender.sentCommands(t) {
		if cmd.Code == int(CmdHeartbeat) && cmd.Content == "pong" {
			sawPong = true
		}
	}
	assert.True(t, sawPong)
	assert.Equal(t, 0, store.appendCount())
}

func TestDanmuUnknownCodeKeepsConnectionUsable(t *testing.T) {
	store := &fakeDanmuStore{}
	h, _ := newDanmuFixture(store)

	sender := newFakeSock(
		mustFrame(t, Command{Code: 999, Content: "???"}),
		mustFrame(t, Command{Code: int(CmdHeartbeat), Content: "ping"}),
	)
	h.ServeConn(sender, 42, 0)

	cmds := sender.sentCommands(t)
	var sawErr, sawPong bool
	for _, cmd := range cmds {
		if cmd.Code == int(CmdError) {
			sawErr = true
			assert.Contains(t, cmd.Content, "999")
		}
		if cmd.Code == int(CmdHeartbeat) {
			sawPong = true
		}
	}
	assert.True(t, sawErr)
	assert.True(t, sawPong)
}

func TestDanmuPopulationNotices(t *testing.T) {
	store := &fakeDanmuStore{}
	h, registry := newDanmuFixture(store)
	viewer := joinViewer(registry, 42)

	sender := newFakeSock()
	h.ServeConn(sender, 42, 0)

	// 观众应先后收到进入与离开两次人数通知
	var notices []RoomNotice
	for _, cmd := range viewer.sentCommands(t) {
		if cmd.Code == int(CmdSystemNotification) {
			var n RoomNotice
			require.NoError(t, json.Unmarshal([]byte(cmd.Content), &n))
			notices = append(notices, n)
		}
	}
	require.Len(t, notices, 2)
	assert.Equal(t, RoomNotice{VID: 42, Population: 2}, notices[0])
	assert.Equal(t, RoomNotice{VID: 42, Population: 1}, notices[1])

	// 断开后房间只剩原观众
	assert.Equal(t, 1, registry.Population(42))
}

func TestDanmuLeaveOnDisconnect(t *testing.T) {
	store := &fakeDanmuStore{}
	h, registry := newDanmuFixture(store)

	sender := newFakeSock()
	h.ServeConn(sender, 42, 0)
	assert.Equal(t, 0, registry.Population(42))
}
