package ws

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRegistryBindLookupUnbind(t *testing.T) {
	r := NewChatRegistry()
	conn := NewConn(newFakeSock())

	r.Bind(1, conn)
	got, ok := r.Lookup(1)
	require.True(t, ok)
	assert.Same(t, conn, got)
	assert.True(t, r.IsOnline(1))

	r.Unbind(1, conn)
	_, ok = r.Lookup(1)
	assert.False(t, ok)
	assert.False(t, r.IsOnline(1))
}

func TestChatRegistryBindSupersedes(t *testing.T) {
	r := NewChatRegistry()
	old := NewConn(newFakeSock())
	fresh := NewConn(newFakeSock())

	r.Bind(1, old)
	r.Bind(1, fresh)

	got, ok := r.Lookup(1)
	require.True(t, ok)
	assert.Same(t, fresh, got)
	// 被顶替的连接不由注册表关闭
	assert.True(t, old.IsOpen())
}

func TestChatRegistryStaleUnbindIsNoop(t *testing.T) {
	r := NewChatRegistry()
	old := NewConn(newFakeSock())
	fresh := NewConn(newFakeSock())

	r.Bind(1, old)
	r.Bind(1, fresh)
	// 旧连接迟到的解绑不能误删新连接
	r.Unbind(1, old)

	got, ok := r.Lookup(1)
	require.True(t, ok)
	assert.Same(t, fresh, got)
}

func TestChatRegistryPrunesClosedConn(t *testing.T) {
	r := NewChatRegistry()
	conn := NewConn(newFakeSock())
	r.Bind(1, conn)
	require.NoError(t, conn.Close())

	assert.False(t, r.IsOnline(1))
	_, ok := r.Lookup(1)
	assert.False(t, ok)
	assert.Equal(t, 0, r.OnlineCount())
}

func TestChatRegistryConcurrent(t *testing.T) {
	r := NewChatRegistry()
	const users = 64
	const rounds = 50

	var wg sync.WaitGroup
	finals := make([]*Conn, users)
	for uid := 0; uid < users; uid++ {
		wg.Add(1)
		go func(uid int) {
			defer wg.Done()
			var last *Conn
			for i := 0; i < rounds; i++ {
				c := NewConn(newFakeSock())
				r.Bind(int64(uid), c)
				if i%3 == 0 {
					r.Unbind(int64(uid), c)
					last = nil
					continue
				}
				last = c
			}
			finals[uid] = last
		}(uid)
	}
	wg.Wait()

	// 所有调用落定后，每个 uid 的净效果如同串行执行
	for uid := 0; uid < users; uid++ {
		got, ok := r.Lookup(int64(uid))
		if finals[uid] == nil {
			assert.False(t, ok, "uid %d 应为离线", uid)
		} else {
			require.True(t, ok, "uid %d 应为在线", uid)
			assert.Same(t, finals[uid], got)
		}
	}
}
