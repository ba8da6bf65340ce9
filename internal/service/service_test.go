package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodeflow/internal/behavior/builtin"
	"nodeflow/internal/domain"
	"nodeflow/internal/flow"
	"nodeflow/internal/interaction"
	"nodeflow/internal/repository/sqlite"
)

func newTestService(t *testing.T, opts ...Option) *EditorService {
	t.Helper()
	reg, err := builtin.NewRegistry()
	require.NoError(t, err)
	return New(reg, NewEventBus(), opts...)
}

func addNode(t *testing.T, svc *EditorService, typeID string, x, y float64) domain.NodeID {
	t.Helper()
	id, err := svc.AddNode(typeID, domain.Position{X: x, Y: y})
	require.NoError(t, err)
	return id
}

func out(id domain.NodeID, i domain.PortIndex) domain.PortRef {
	return domain.PortRef{Node: id, Type: domain.PortOut, Index: i}
}

func in(id domain.NodeID, i domain.PortIndex) domain.PortRef {
	return domain.PortRef{Node: id, Type: domain.PortIn, Index: i}
}

// drain collects the event types received so far
func drain(ch <-chan Event) []EventType {
	var types []EventType
	for {
		select {
		case e := <-ch:
			types = append(types, e.Type)
		default:
			return types
		}
	}
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	a := make(chan Event, 1)
	b := make(chan Event, 1)
	bus.Subscribe(a)
	unsubscribe := bus.Subscribe(b)

	bus.Publish(Event{Type: EventSceneSaved})
	assert.Equal(t, []EventType{EventSceneSaved}, drain(a))
	assert.Equal(t, []EventType{EventSceneSaved}, drain(b))

	t.Run("slow subscriber is skipped", func(t *testing.T) {
		bus.Publish(Event{Type: EventNodeAdded})
		bus.Publish(Event{Type: EventNodeRemoved})
		assert.Equal(t, []EventType{EventNodeAdded}, drain(a))
		drain(b)
	})

	t.Run("unsubscribed channel receives nothing", func(t *testing.T) {
		unsubscribe()
		bus.Publish(Event{Type: EventSceneLoaded})
		assert.Empty(t, drain(b))
		assert.Len(t, drain(a), 1)
	})
}

func TestModelEventsForwarded(t *testing.T) {
	svc := newTestService(t)
	ch := make(chan Event, 16)
	svc.EventBus().Subscribe(ch)

	src := addNode(t, svc, builtin.TypeNumberSource, 0, 0)
	dst := addNode(t, svc, builtin.TypeNumberDisplay, 300, 0)
	conn := domain.NewConnectionID(out(src, 0), in(dst, 0))
	require.NoError(t, svc.AddConnection(conn))
	require.NoError(t, svc.MoveNode(dst, domain.Position{X: 400, Y: 0}))

	types := drain(ch)
	assert.Equal(t, EventNodeAdded, types[0])
	assert.Equal(t, EventNodeAdded, types[1])
	assert.Contains(t, types, EventConnectionAdded)
	assert.Equal(t, EventNodeMoved, types[len(types)-1])
}

func TestScene(t *testing.T) {
	svc := newTestService(t)
	src := addNode(t, svc, builtin.TypeNumberSource, 0, 0)
	dst := addNode(t, svc, builtin.TypeNumberDisplay, 300, 0)
	conn := domain.NewConnectionID(out(src, 0), in(dst, 0))
	require.NoError(t, svc.AddConnection(conn))
	require.NoError(t, svc.SetConnectionLocked(conn, true))

	scene := svc.Scene()
	require.Len(t, scene.Nodes, 2)
	require.Len(t, scene.Connections, 1)
	assert.Len(t, scene.Fingerprint, 64)
	assert.Equal(t, svc.Fingerprint(), scene.Fingerprint)

	source := scene.Nodes[0]
	assert.Equal(t, src, source.ID)
	assert.Equal(t, builtin.TypeNumberSource, source.Type)
	assert.Empty(t, source.In)
	require.Len(t, source.Out, 1)
	assert.Equal(t, builtin.NumberType, source.Out[0].DataType)
	assert.Equal(t, 1, source.Out[0].Connections)

	assert.Equal(t, conn, scene.Connections[0].ConnectionID)
	assert.Equal(t, builtin.NumberType, scene.Connections[0].DataType)
	assert.True(t, scene.Connections[0].Locked)

	view, err := svc.Node(dst)
	require.NoError(t, err)
	assert.Equal(t, domain.Position{X: 300, Y: 0}, view.Position)

	_, err = svc.Node(domain.NewNodeID())
	assert.ErrorIs(t, err, flow.ErrInvalidIndex)
}

func TestNodeOperations(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.AddNode("nope", domain.Position{})
	assert.Error(t, err)

	src := addNode(t, svc, builtin.TypeNumberSource, 0, 0)
	require.NoError(t, svc.SetNodeState(src, map[string]any{"value": 4.5}))
	view, err := svc.Node(src)
	require.NoError(t, err)
	assert.Equal(t, 4.5, view.State["value"])

	require.NoError(t, svc.RemoveNode(src))
	assert.ErrorIs(t, svc.RemoveNode(src), flow.ErrInvalidIndex)
	assert.ErrorIs(t, svc.MoveNode(src, domain.Position{}), flow.ErrInvalidIndex)
}

func TestConnectInsertsConverter(t *testing.T) {
	svc := newTestService(t)
	src := addNode(t, svc, builtin.TypeNumberSource, 0, 0)
	dst := addNode(t, svc, builtin.TypeTextDisplay, 400, 0)

	outcome, err := svc.Connect(out(src, 0), in(dst, 0))
	require.NoError(t, err)
	assert.Equal(t, interaction.StateConverted, outcome.State)
	assert.Len(t, outcome.Connections, 2)
	assert.False(t, outcome.Orphan)

	view, err := svc.Node(outcome.Converter)
	require.NoError(t, err)
	assert.Equal(t, builtin.TypeNumberToText, view.Type)
	assert.Empty(t, svc.Orphans())
}

func TestConnectRejected(t *testing.T) {
	svc := newTestService(t)
	src := addNode(t, svc, builtin.TypeBoolSource, 0, 0)
	dst := addNode(t, svc, builtin.TypeNumberDisplay, 400, 0)
	before := svc.Fingerprint()

	outcome, err := svc.Connect(out(src, 0), in(dst, 0))
	assert.ErrorIs(t, err, flow.ErrTypeMismatch)
	assert.Equal(t, interaction.StateCancelled, outcome.State)
	assert.Equal(t, before, svc.Fingerprint())

	_, err = svc.Connect(out(src, 0), out(dst, 0))
	assert.Error(t, err)
}

func TestDragSession(t *testing.T) {
	svc := newTestService(t)
	src := addNode(t, svc, builtin.TypeNumberSource, 0, 0)
	dst := addNode(t, svc, builtin.TypeNumberDisplay, 300, 0)
	geo := interaction.NewBoxGeometry(nil)
	inPort := domain.Position{X: 300, Y: geo.Header + geo.PortSpacing/2}

	view, err := svc.BeginDrag(out(src, 0))
	require.NoError(t, err)
	assert.Equal(t, interaction.StateDragging, view.State)
	assert.Equal(t, domain.PortIn, view.Required)
	assert.Len(t, svc.Sessions(), 1)

	view, err = svc.DragMove(view.ID, domain.Position{X: 900, Y: 900})
	require.NoError(t, err)
	require.NotNil(t, view.Evaluation)
	assert.False(t, view.Evaluation.OK)
	assert.NotEmpty(t, view.Evaluation.Reason)

	view, err = svc.DragMove(view.ID, inPort)
	require.NoError(t, err)
	require.NotNil(t, view.Evaluation)
	assert.True(t, view.Evaluation.OK)
	assert.Equal(t, in(dst, 0), view.Evaluation.Target)

	outcome, err := svc.DragRelease(view.ID, inPort)
	require.NoError(t, err)
	assert.Equal(t, interaction.StateCommitted, outcome.State)
	assert.Empty(t, svc.Sessions())
	assert.Len(t, svc.Scene().Connections, 1)

	_, err = svc.DragMove(view.ID, inPort)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDragDetachAndCancel(t *testing.T) {
	tests := []struct {
		name        string
		policy      interaction.RestorePolicy
		connections int
	}{
		{name: "discard", policy: interaction.Discard, connections: 0},
		{name: "restore", policy: interaction.RestoreOnCancel, connections: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, WithRestorePolicy(tt.policy))
			src := addNode(t, svc, builtin.TypeNumberSource, 0, 0)
			dst := addNode(t, svc, builtin.TypeNumberDisplay, 300, 0)
			require.NoError(t, svc.AddConnection(domain.NewConnectionID(out(src, 0), in(dst, 0))))

			// grabbing the occupied input detaches its connection
			view, err := svc.BeginDrag(in(dst, 0))
			require.NoError(t, err)
			assert.Equal(t, out(src, 0), view.Fixed)
			assert.Empty(t, svc.Scene().Connections)

			require.NoError(t, svc.DragCancel(view.ID))
			assert.Len(t, svc.Scene().Connections, tt.connections)
			assert.ErrorIs(t, svc.DragCancel(view.ID), ErrSessionNotFound)
		})
	}
}

func TestExpireDrags(t *testing.T) {
	tests := []struct {
		name        string
		policy      interaction.RestorePolicy
		connections int
	}{
		{name: "discard", policy: interaction.Discard, connections: 0},
		{name: "restore", policy: interaction.RestoreOnCancel, connections: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, WithRestorePolicy(tt.policy), WithDragTimeout(time.Minute))
			src := addNode(t, svc, builtin.TypeNumberSource, 0, 0)
			dst := addNode(t, svc, builtin.TypeNumberDisplay, 300, 0)
			require.NoError(t, svc.AddConnection(domain.NewConnectionID(out(src, 0), in(dst, 0))))

			view, err := svc.BeginDrag(in(dst, 0))
			require.NoError(t, err)

			assert.Empty(t, svc.ExpireDrags(time.Now()), "fresh drag is kept")
			assert.Len(t, svc.Sessions(), 1)

			expired := svc.ExpireDrags(time.Now().Add(2 * time.Minute))
			assert.Equal(t, []string{view.ID}, expired)
			assert.Empty(t, svc.Sessions())
			assert.Len(t, svc.Scene().Connections, tt.connections)
			assert.ErrorIs(t, svc.DragCancel(view.ID), ErrSessionNotFound)
		})
	}

	t.Run("disabled", func(t *testing.T) {
		svc := newTestService(t, WithDragTimeout(0))
		src := addNode(t, svc, builtin.TypeNumberSource, 0, 0)
		_, err := svc.BeginDrag(out(src, 0))
		require.NoError(t, err)

		assert.Empty(t, svc.ExpireDrags(time.Now().Add(24*time.Hour)))
		assert.Len(t, svc.Sessions(), 1)
	})
}

func TestRunDragExpiry(t *testing.T) {
	svc := newTestService(t, WithDragTimeout(20*time.Millisecond))
	src := addNode(t, svc, builtin.TypeNumberSource, 0, 0)
	_, err := svc.BeginDrag(out(src, 0))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunDragExpiry(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(svc.Sessions()) == 0 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done
}

func TestDetachConnection(t *testing.T) {
	svc := newTestService(t)
	src := addNode(t, svc, builtin.TypeNumberSource, 0, 0)
	dst := addNode(t, svc, builtin.TypeNumberDisplay, 300, 0)
	conn := domain.NewConnectionID(out(src, 0), in(dst, 0))
	require.NoError(t, svc.AddConnection(conn))

	require.NoError(t, svc.SetConnectionLocked(conn, true))
	_, err := svc.DetachConnection(conn, domain.PortOut)
	assert.ErrorIs(t, err, flow.ErrConnectionLocked)

	require.NoError(t, svc.SetConnectionLocked(conn, false))
	view, err := svc.DetachConnection(conn, domain.PortOut)
	require.NoError(t, err)
	assert.Equal(t, in(dst, 0), view.Fixed)
	assert.Equal(t, domain.PortOut, view.Required)
}

func TestReplaceDocumentRoundTrip(t *testing.T) {
	svc := newTestService(t)
	src := addNode(t, svc, builtin.TypeNumberSource, 0, 0)
	dst := addNode(t, svc, builtin.TypeTextDisplay, 400, 0)
	_, err := svc.Connect(out(src, 0), in(dst, 0))
	require.NoError(t, err)

	doc := svc.Document()
	require.Len(t, doc.Nodes, 3)
	require.Len(t, doc.Connections, 2)

	other := newTestService(t)
	ch := make(chan Event, 64)
	other.EventBus().Subscribe(ch)

	report, err := other.ReplaceDocument(doc)
	require.NoError(t, err)
	assert.True(t, report.Complete())
	assert.Contains(t, drain(ch), EventSceneLoaded)

	scene := other.Scene()
	assert.Len(t, scene.Nodes, 3)
	assert.Len(t, scene.Connections, 2)

	// replacing again clears the previous contents first
	_, err = other.ReplaceDocument(doc)
	require.NoError(t, err)
	assert.Len(t, other.Scene().Nodes, 3)

	_, err = other.ReplaceDocument(nil)
	assert.Error(t, err)
}

func TestFileRoundTrip(t *testing.T) {
	svc := newTestService(t)
	addNode(t, svc, builtin.TypeNumberSource, 5, 6)
	path := filepath.Join(t.TempDir(), "scene.flow")
	require.NoError(t, svc.SaveFile(path))

	other := newTestService(t)
	report, err := other.LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, report.IDs, 1)

	scene := other.Scene()
	require.Len(t, scene.Nodes, 1)
	assert.Equal(t, domain.Position{X: 5, Y: 6}, scene.Nodes[0].Position)

	_, err = other.LoadFile(filepath.Join(t.TempDir(), "missing.flow"))
	assert.Error(t, err)
}

func TestSceneStore(t *testing.T) {
	ctx := context.Background()

	t.Run("without store", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.SaveScene(ctx, "demo")
		assert.ErrorIs(t, err, ErrNoStore)
		_, err = svc.LoadScene(ctx, "demo")
		assert.ErrorIs(t, err, ErrNoStore)
		_, err = svc.ListScenes(ctx)
		assert.ErrorIs(t, err, ErrNoStore)
		assert.ErrorIs(t, svc.DeleteScene(ctx, "demo"), ErrNoStore)
	})

	t.Run("with sqlite store", func(t *testing.T) {
		repo, err := sqlite.New(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { repo.Close() })

		svc := newTestService(t, WithStore(repo))
		addNode(t, svc, builtin.TypeNumberSource, 0, 0)
		addNode(t, svc, builtin.TypeNumberDisplay, 300, 0)

		info, err := svc.SaveScene(ctx, "demo")
		require.NoError(t, err)
		assert.Equal(t, 2, info.Nodes)

		_, err = svc.AddNode(builtin.TypeBoolSource, domain.Position{})
		require.NoError(t, err)

		_, err = svc.LoadScene(ctx, "demo")
		require.NoError(t, err)
		assert.Len(t, svc.Scene().Nodes, 2)

		scenes, err := svc.ListScenes(ctx)
		require.NoError(t, err)
		require.Len(t, scenes, 1)
		assert.Equal(t, "demo", scenes[0].Name)

		require.NoError(t, svc.DeleteScene(ctx, "demo"))
	})
}

func TestConcurrentAccess(t *testing.T) {
	svc := newTestService(t)
	src := addNode(t, svc, builtin.TypeNumberSource, 0, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dst, err := svc.AddNode(builtin.TypeNumberDisplay, domain.Position{X: 300, Y: float64(i * 100)})
			if !assert.NoError(t, err) {
				return
			}
			assert.NoError(t, svc.AddConnection(domain.NewConnectionID(out(src, 0), in(dst, 0))))
			svc.Scene()
		}(i)
	}
	wg.Wait()

	assert.Len(t, svc.Scene().Connections, 8)
}
