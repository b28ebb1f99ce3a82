package tictactoe

import (
	"context"
	"io"
	"log/slog"
	"net/netip"
	"testing"
	"time"

	"github.com/rocketscienceinc/tictactoe-udp/internal/entity"
	"github.com/rocketscienceinc/tictactoe-udp/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const eventTimeout = 2 * time.Second

var (
	alice = netip.MustParseAddrPort("127.0.0.1:5001")
	bob   = netip.MustParseAddrPort("127.0.0.1:5002")
)

type eventKind string

const (
	kindPrompt   eventKind = "prompt"
	kindSnapshot eventKind = "snapshot"
	kindGameOver eventKind = "game-over"
	kindText     eventKind = "text"
)

type event struct {
	kind   eventKind
	addrs  []netip.AddrPort
	game   entity.Game
	result entity.Result
	text   string
}

// recordingBroadcaster captures everything the loop sends.
type recordingBroadcaster struct {
	events chan event

	// onSnapshot runs on the loop goroutine after a snapshot is recorded
	onSnapshot func(game entity.Game)
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{events: make(chan event, 64)}
}

func (that *recordingBroadcaster) TurnPrompt(addr netip.AddrPort) error {
	that.events <- event{kind: kindPrompt, addrs: []netip.AddrPort{addr}}
	return nil
}

func (that *recordingBroadcaster) Snapshot(addrs []netip.AddrPort, game entity.Game) error {
	that.events <- event{kind: kindSnapshot, addrs: append([]netip.AddrPort(nil), addrs...), game: game}
	if that.onSnapshot != nil {
		that.onSnapshot(game)
	}
	return nil
}

func (that *recordingBroadcaster) GameOver(addrs []netip.AddrPort, result entity.Result) error {
	that.events <- event{kind: kindGameOver, addrs: append([]netip.AddrPort(nil), addrs...), result: result}
	return nil
}

func (that *recordingBroadcaster) Text(addr netip.AddrPort, text string) error {
	that.events <- event{kind: kindText, addrs: []netip.AddrPort{addr}, text: text}
	return nil
}

func (that *recordingBroadcaster) next(t *testing.T) event {
	t.Helper()

	select {
	case ev := <-that.events:
		return ev
	case <-time.After(eventTimeout):
		t.Fatal("timed out waiting for the game loop")
		return event{}
	}
}

func (that *recordingBroadcaster) expect(t *testing.T, kind eventKind, addrs ...netip.AddrPort) event {
	t.Helper()

	ev := that.next(t)
	require.Equal(t, kind, ev.kind, "unexpected event %+v", ev)
	require.Equal(t, addrs, ev.addrs)

	return ev
}

type mockRecorder struct {
	mock.Mock
}

func (that *mockRecorder) Record(ctx context.Context, record *entity.GameRecord) error {
	args := that.Called(ctx, record)
	return args.Error(0)
}

type fixture struct {
	session     *session.Session
	broadcaster *recordingBroadcaster
	done        chan error
	cancel      context.CancelFunc
}

func startLoop(t *testing.T, recorder resultRecorder) *fixture {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ids := 0
	sess := session.New(func() string {
		ids++
		return "game-" + string(rune('0'+ids))
	})
	b := newRecordingBroadcaster()

	ctx, cancel := context.WithCancel(context.Background())
	f := &fixture{session: sess, broadcaster: b, done: make(chan error, 1), cancel: cancel}

	loop := NewGameLoop(logger, sess, b, recorder)
	go func() {
		f.done <- loop.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-f.done
	})

	return f
}

// seatBoth joins alice and bob and consumes the opening snapshot and prompt.
func (that *fixture) seatBoth(t *testing.T) {
	t.Helper()

	_, err := that.session.Join(alice)
	require.NoError(t, err)
	_, err = that.session.Join(bob)
	require.NoError(t, err)

	ev := that.broadcaster.expect(t, kindSnapshot, alice, bob)
	assert.Equal(t, 0, ev.game.Occupied)
	that.broadcaster.expect(t, kindPrompt, alice)
}

func (that *fixture) play(t *testing.T, seat entity.Seat, col, row int) {
	t.Helper()

	require.NoError(t, that.session.ProposeMove(seat, col, row))
}

func TestGameLoop_Opening(t *testing.T) {
	// Given: a running loop
	f := startLoop(t, nil)

	// When: one player joins
	_, err := f.session.Join(alice)
	require.NoError(t, err)

	// Then: nothing is sent until the second player arrives
	select {
	case ev := <-f.broadcaster.events:
		t.Fatalf("unexpected event with one player: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}

	_, err = f.session.Join(bob)
	require.NoError(t, err)

	// Then: both get the empty board and seat 0 is prompted
	ev := f.broadcaster.expect(t, kindSnapshot, alice, bob)
	assert.Empty(t, ev.game.Placements())
	f.broadcaster.expect(t, kindPrompt, alice)
}

func TestGameLoop_ValidMove(t *testing.T) {
	// Given: a started game
	f := startLoop(t, nil)
	f.seatBoth(t)

	// When: seat 0 plays (0, 0)
	f.play(t, entity.Seat0, 0, 0)

	// Then: both see the mark and seat 1 is prompted
	ev := f.broadcaster.expect(t, kindSnapshot, alice, bob)
	assert.Equal(t, []entity.Placement{{Mark: entity.MarkX, Col: 0, Row: 0}}, ev.game.Placements())
	assert.Equal(t, 1, ev.game.Occupied)
	f.broadcaster.expect(t, kindPrompt, bob)
}

func TestGameLoop_InvalidMoves(t *testing.T) {
	t.Run("Occupied cell", func(t *testing.T) {
		// Given: a game where (1, 1) is taken by seat 0
		f := startLoop(t, nil)
		f.seatBoth(t)
		f.play(t, entity.Seat0, 1, 1)
		f.broadcaster.expect(t, kindSnapshot, alice, bob)
		f.broadcaster.expect(t, kindPrompt, bob)

		// When: seat 1 plays the same cell
		f.play(t, entity.Seat1, 1, 1)

		// Then: seat 1 is told and prompted again, the board is untouched
		ev := f.broadcaster.expect(t, kindText, bob)
		assert.Equal(t, textCellOccupied, ev.text)
		f.broadcaster.expect(t, kindPrompt, bob)

		game, _ := f.session.Game()
		assert.Equal(t, 1, game.Occupied)
		assert.Equal(t, entity.Seat1, game.Turn)
	})

	t.Run("Outside the grid", func(t *testing.T) {
		// Given: a started game
		f := startLoop(t, nil)
		f.seatBoth(t)

		// When: seat 0 plays column 3
		f.play(t, entity.Seat0, 3, 0)

		// Then: seat 0 is told and stays the seat to move
		ev := f.broadcaster.expect(t, kindText, alice)
		assert.Equal(t, textOutOfGrid, ev.text)
		f.broadcaster.expect(t, kindPrompt, alice)

		game, _ := f.session.Game()
		assert.Equal(t, 0, game.Occupied)
		assert.Equal(t, entity.Seat0, game.Turn)

		// And: a valid retry is accepted
		f.play(t, entity.Seat0, 2, 2)
		ev = f.broadcaster.expect(t, kindSnapshot, alice, bob)
		assert.Equal(t, entity.MarkX, ev.game.Board[2][2])
	})
}

func TestGameLoop_Win(t *testing.T) {
	// Given: a running loop that records results
	recorder := &mockRecorder{}
	recorded := make(chan *entity.GameRecord, 1)
	deadlines := make(chan time.Time, 1)
	recorder.On("Record", mock.Anything, mock.AnythingOfType("*entity.GameRecord")).
		Run(func(args mock.Arguments) {
			deadline, _ := args.Get(0).(context.Context).Deadline()
			deadlines <- deadline
			recorded <- args.Get(1).(*entity.GameRecord)
		}).
		Return(nil).
		Once()

	f := startLoop(t, recorder)
	f.seatBoth(t)

	// When: seat 0 completes the top row
	moves := []entity.Move{
		{Seat: entity.Seat0, Col: 0, Row: 0},
		{Seat: entity.Seat1, Col: 0, Row: 1},
		{Seat: entity.Seat0, Col: 1, Row: 0},
		{Seat: entity.Seat1, Col: 1, Row: 1},
		{Seat: entity.Seat0, Col: 2, Row: 0},
	}
	for i, move := range moves {
		f.play(t, move.Seat, move.Col, move.Row)
		ev := f.broadcaster.expect(t, kindSnapshot, alice, bob)
		assert.Equal(t, i+1, ev.game.Occupied)

		if i < len(moves)-1 {
			f.broadcaster.expect(t, kindPrompt, f.session.SeatAddr(move.Seat.Other()))
		}
	}

	// Then: both seats learn that player 1 won
	ev := f.broadcaster.expect(t, kindGameOver, alice, bob)
	assert.Equal(t, entity.Result(1), ev.result)

	// And: the result is recorded
	select {
	case record := <-recorded:
		assert.Equal(t, "game-1", record.ID)
		assert.Equal(t, entity.Result(1), record.Result)
		assert.Equal(t, [2]string{alice.String(), bob.String()}, record.Players)
		assert.Equal(t, 5, record.Moves)
		assert.Equal(t, alice.String(), record.Winner())
	case <-time.After(eventTimeout):
		t.Fatal("result was not recorded")
	}

	// And: recording is bounded in time
	deadline := <-deadlines
	require.False(t, deadline.IsZero(), "record context has no deadline")
	assert.WithinDuration(t, time.Now().Add(recordTimeout), deadline, time.Second)

	// And: the seats are free for a new game
	assert.Equal(t, entity.SeatUnassigned, f.session.Resolve(alice))
	seat, err := f.session.Join(bob)
	require.NoError(t, err)
	assert.Equal(t, entity.Seat0, seat)

	recorder.AssertExpectations(t)
}

func TestGameLoop_Draw(t *testing.T) {
	// Given: a started game
	f := startLoop(t, nil)
	f.seatBoth(t)

	// When: the board fills up without a line
	cells := [][2]int{{0, 0}, {1, 0}, {2, 0}, {1, 1}, {0, 1}, {0, 2}, {2, 1}, {2, 2}, {1, 2}}
	for i, cell := range cells {
		seat := entity.Seat(i % 2)
		f.play(t, seat, cell[0], cell[1])
		f.broadcaster.expect(t, kindSnapshot, alice, bob)

		if i < len(cells)-1 {
			f.broadcaster.expect(t, kindPrompt, f.session.SeatAddr(seat.Other()))
		}
	}

	// Then: both seats are told the game is a draw
	ev := f.broadcaster.expect(t, kindGameOver, alice, bob)
	assert.Equal(t, entity.ResultDraw, ev.result)
}

func TestGameLoop_NextGame(t *testing.T) {
	// Given: a game that seat 1 wins on the diagonal
	f := startLoop(t, nil)
	f.seatBoth(t)

	moves := []entity.Move{
		{Seat: entity.Seat0, Col: 1, Row: 0},
		{Seat: entity.Seat1, Col: 0, Row: 0},
		{Seat: entity.Seat0, Col: 2, Row: 0},
		{Seat: entity.Seat1, Col: 1, Row: 1},
		{Seat: entity.Seat0, Col: 0, Row: 1},
		{Seat: entity.Seat1, Col: 2, Row: 2},
	}
	for i, move := range moves {
		f.play(t, move.Seat, move.Col, move.Row)
		f.broadcaster.expect(t, kindSnapshot, alice, bob)

		if i < len(moves)-1 {
			f.broadcaster.expect(t, kindPrompt, f.session.SeatAddr(move.Seat.Other()))
		}
	}
	ev := f.broadcaster.expect(t, kindGameOver, alice, bob)
	assert.Equal(t, entity.Result(2), ev.result)

	// When: both players say hello again, in the other order
	_, err := f.session.Join(bob)
	require.NoError(t, err)
	_, err = f.session.Join(alice)
	require.NoError(t, err)

	// Then: a fresh game starts with bob as seat 0
	ev = f.broadcaster.expect(t, kindSnapshot, bob, alice)
	assert.Equal(t, 0, ev.game.Occupied)
	assert.Equal(t, "game-2", ev.game.ID)
	f.broadcaster.expect(t, kindPrompt, bob)
}

func TestGameLoop_Stop(t *testing.T) {
	// Given: a loop waiting for a move
	f := startLoop(t, nil)
	f.seatBoth(t)

	// When: the context is cancelled
	f.cancel()

	// Then: Run returns the cancellation
	select {
	case err := <-f.done:
		require.ErrorIs(t, err, context.Canceled)
		f.done <- err
	case <-time.After(eventTimeout):
		t.Fatal("game loop did not stop")
	}
}

// mailboxSession hands the loop moves from its own channel instead of the session mailbox.
type mailboxSession struct {
	*session.Session
	moves chan entity.Move
}

func (that *mailboxSession) Moves() <-chan entity.Move {
	return that.moves
}

func TestGameLoop_StaleMove(t *testing.T) {
	// Given: a mailbox that already holds a move of seat 1 before the game starts
	sess := &mailboxSession{
		Session: session.New(func() string { return "game-1" }),
		moves:   make(chan entity.Move, 1),
	}
	sess.moves <- entity.Move{Seat: entity.Seat1, Col: 1, Row: 1}

	// And: seat 1 answers the first snapshot with a mark before it is prompted
	b := newRecordingBroadcaster()
	b.onSnapshot = func(game entity.Game) {
		if game.Occupied == 1 {
			sess.moves <- entity.Move{Seat: entity.Seat1, Col: 0, Row: 1}
		}
	}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewGameLoop(logger, sess, b, nil).Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	_, err := sess.Join(alice)
	require.NoError(t, err)
	_, err = sess.Join(bob)
	require.NoError(t, err)

	// Then: the stale move is dropped and seat 0 is prompted once
	b.expect(t, kindSnapshot, alice, bob)
	b.expect(t, kindPrompt, alice)

	// When: another move of the wrong seat wakes the loop
	sess.moves <- entity.Move{Seat: entity.Seat1, Col: 2, Row: 2}

	// Then: seat 0 is prompted again and the board is unchanged
	b.expect(t, kindPrompt, alice)

	game, _ := sess.Game()
	assert.Equal(t, 0, game.Occupied)
	assert.Equal(t, entity.Seat0, game.Turn)

	// When: seat 0 moves
	sess.moves <- entity.Move{Seat: entity.Seat0, Col: 0, Row: 0}

	// Then: its move is applied
	ev := b.expect(t, kindSnapshot, alice, bob)
	assert.Equal(t, entity.MarkX, ev.game.Board[0][0])

	// And: the move seat 1 sent early is applied without prompting seat 1
	ev = b.expect(t, kindSnapshot, alice, bob)
	assert.Equal(t, 2, ev.game.Occupied)
	assert.Equal(t, entity.MarkO, ev.game.Board[1][0])
	b.expect(t, kindPrompt, alice)
}
