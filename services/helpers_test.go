package services

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/qianlnk/undercover/models"
)

// scriptedRandom 返回预设的 Intn 结果；Shuffle 默认不改变顺序，reverse 中为 true 的那次调用会倒序
type scriptedRandom struct {
	ints     []int
	next     int
	reverse  []bool
	shuffles int
}

func (r *scriptedRandom) Intn(n int) int {
	if r.next >= len(r.ints) {
		return 0
	}
	v := r.ints[r.next]
	r.next++
	return v % n
}

func (r *scriptedRandom) Shuffle(n int, swap func(i, j int)) {
	call := r.shuffles
	r.shuffles++
	if call < len(r.reverse) && r.reverse[call] {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}
}

func playerID(i int) string {
	return fmt.Sprintf("p%d", i)
}

func testWords(t *testing.T) *WordRepository {
	t.Helper()
	words, err := NewWordRepository([]models.WordPair{{Civilian: "apple", Undercover: "pear"}})
	if err != nil {
		t.Fatalf("word repository: %v", err)
	}
	return words
}

// newLobby 创建有 n 个玩家的大厅，p1 是房主
func newLobby(t *testing.T, n int, settings models.Settings, rng Randomizer) *Session {
	t.Helper()
	if rng == nil {
		rng = &scriptedRandom{}
	}
	s := NewSession("chat-1", playerID(1), settings, rng)
	for i := 1; i <= n; i++ {
		if err := s.Join(playerID(i), fmt.Sprintf("Player %d", i)); err != nil {
			t.Fatalf("join %s: %v", playerID(i), err)
		}
	}
	s.DrainEvents()
	return s
}

// newStarted 开局后的会话；默认随机源下角色按 平民、卧底、白板 的顺序分给 p1..pn，发言顺序为加入顺序
func newStarted(t *testing.T, n int, settings models.Settings, rng Randomizer) *Session {
	t.Helper()
	s := newLobby(t, n, settings, rng)
	if err := s.Start(testWords(t), DefaultAutoPolicy()); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.DrainEvents()
	return s
}

func mustRole(t *testing.T, s *Session, id string) models.Role {
	t.Helper()
	p, ok := s.Player(id)
	if !ok {
		t.Fatalf("player %s not found", id)
	}
	return p.Role
}

// voteOut 所有存活玩家投 target，target 投给另一名存活玩家
func voteOut(t *testing.T, s *Session, target string) {
	t.Helper()
	if s.State == models.StateDescribing {
		if err := s.ForceVoting(); err != nil {
			t.Fatalf("force voting: %v", err)
		}
	}
	alive := s.AlivePlayers()
	for _, p := range alive {
		choice := target
		if p.ID == target {
			for _, other := range alive {
				if other.ID != target {
					choice = other.ID
					break
				}
			}
		}
		if s.State != models.StateVoting {
			break
		}
		if err := s.CastVote(p.ID, choice); err != nil {
			t.Fatalf("%s votes %s: %v", p.ID, choice, err)
		}
	}
}

func snapshotOf(t *testing.T, s *Session) []byte {
	t.Helper()
	data, err := s.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return data
}

// baseline 清空已有事件并返回当前快照
func baseline(t *testing.T, s *Session) []byte {
	t.Helper()
	s.DrainEvents()
	return snapshotOf(t, s)
}

func assertUnchanged(t *testing.T, s *Session, before []byte, op string) {
	t.Helper()
	if after := snapshotOf(t, s); !bytes.Equal(before, after) {
		t.Fatalf("%s: rejected operation changed the session\nbefore: %s\nafter:  %s", op, before, after)
	}
	if events := s.DrainEvents(); len(events) != 0 {
		t.Fatalf("%s: rejected operation emitted %d events", op, len(events))
	}
}
