package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchCommand(t *testing.T) {
	assert.Equal(t, CmdConnection, MatchCommand(100))
	assert.Equal(t, CmdHeartbeat, MatchCommand(110))
	assert.Equal(t, CmdChatSend, MatchCommand(101))
	assert.Equal(t, CmdChatWithdraw, MatchCommand(102))
	assert.Equal(t, CmdDanmuSend, MatchCommand(201))
	assert.Equal(t, CmdSystemNotification, MatchCommand(401))

	// 闭集外的 code 一律归入 ERROR
	assert.Equal(t, CmdError, MatchCommand(999))
	assert.Equal(t, CmdError, MatchCommand(0))
	assert.Equal(t, CmdError, MatchCommand(-1))
}

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"code":101,"content":"hello","peer_id":2}`))
	require.NoError(t, err)
	assert.Equal(t, 101, cmd.Code)
	assert.Equal(t, "hello", cmd.Content)
	assert.Equal(t, int64(2), cmd.PeerID)
	assert.Equal(t, CmdChatSend, cmd.Type())
}

func TestParseCommandInvalid(t *testing.T) {
	_, err := ParseCommand([]byte("not json"))
	assert.Error(t, err)
}

func TestBuilders(t *testing.T) {
	assert.Equal(t, int(CmdError), ErrorCommand("boom").Code)
	assert.Equal(t, "pong", HeartbeatReply().Content)
	assert.Equal(t, int(CmdHeartbeat), HeartbeatReply().Code)
	assert.Equal(t, int(CmdConnection), ConnectionAck().Code)
}
