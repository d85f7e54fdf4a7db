package bus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/karalama/karalama/internal/model"
	"github.com/karalama/karalama/internal/testutil"
)

type RedisBusSuite struct {
	suite.Suite
	mini *miniredis.Miniredis
	bus  *RedisBus
	ctx  context.Context
}

func TestRedisBusSuite(t *testing.T) {
	suite.Run(t, new(RedisBusSuite))
}

func (s *RedisBusSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	s.bus = NewRedis(client, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *RedisBusSuite) TearDownTest() {
	_ = s.bus.Close()
	s.mini.Close()
}

func (s *RedisBusSuite) waitFor(ch <-chan model.Event) model.Event {
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		s.FailNow("timed out waiting for event")
		return model.Event{}
	}
}

func (s *RedisBusSuite) TestPublishRoundTrip() {
	received := make(chan model.Event, 1)
	_, err := s.bus.Subscribe(s.ctx, ChatTopic("R1"), func(ev model.Event) {
		received <- ev
	})
	s.Require().NoError(err)

	err = s.bus.Publish(s.ctx, ChatTopic("R1"), chatEvent("R1", "over redis"))
	s.Require().NoError(err)

	ev := s.waitFor(received)
	s.Equal(model.EventChat, ev.Kind)
	s.Equal(model.RoomCode("R1"), ev.RoomCode)
	s.Equal("over redis", ev.Payload.(model.ChatPayload).Message)
}

func (s *RedisBusSuite) TestMalformedMessageDropped() {
	received := make(chan model.Event, 1)
	_, err := s.bus.Subscribe(s.ctx, ChatTopic("R1"), func(ev model.Event) {
		received <- ev
	})
	s.Require().NoError(err)

	// Raw garbage straight onto the wire, bypassing EncodeEvent
	client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	defer client.Close()
	s.Require().NoError(client.Publish(s.ctx, ChatTopic("R1"), "not json").Err())

	// A valid event published afterwards still arrives; the garbage did not
	_ = s.bus.Publish(s.ctx, ChatTopic("R1"), chatEvent("R1", "valid"))
	ev := s.waitFor(received)
	s.Equal("valid", ev.Payload.(model.ChatPayload).Message)
	s.Empty(received)
}

func (s *RedisBusSuite) TestUnsubscribeStopsCallbacks() {
	received := make(chan model.Event, 8)
	sub, err := s.bus.Subscribe(s.ctx, DrawingTopic("R1"), func(ev model.Event) {
		received <- ev
	})
	s.Require().NoError(err)

	sub.Unsubscribe()

	_ = s.bus.Publish(s.ctx, DrawingTopic("R1"), model.Event{
		Kind:     model.EventDrawing,
		RoomCode: "R1",
		Payload:  model.DrawingPayload{PlayerID: "p1", DrawingData: []byte{0x1}},
	})

	select {
	case <-received:
		s.FailNow("received event after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}
