package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lightlink-network/ll-rollup-api/rollup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaPublish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer func() { assert.NoError(t, producer.Close()) }()

	ev := rollup.Event{
		Type:     rollup.EventBatchSubmitted,
		RollupID: 7,
		BatchID:  3,
		Account:  common.HexToAddress("0x11"),
		Height:   120,
	}

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "rollup-events" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "7" {
			return errors.New("unexpected key " + string(key))
		}

		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var got rollup.Event
		if err := json.Unmarshal(value, &got); err != nil {
			return err
		}
		if got != ev {
			return errors.New("event mismatch")
		}
		return nil
	})

	k := NewKafkaWithProducer(producer, "rollup-events", nil)
	require.NoError(t, k.Publish(context.Background(), ev))
}

func TestKafkaPublishFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer func() { assert.NoError(t, producer.Close()) }()

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	k := NewKafkaWithProducer(producer, "rollup-events", nil)
	err := k.Publish(context.Background(), rollup.Event{Type: rollup.EventDeposited, RollupID: 1})
	require.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

type failing struct{ err error }

func (f failing) Publish(context.Context, rollup.Event) error { return f.err }

type counting struct{ n int }

func (c *counting) Publish(context.Context, rollup.Event) error {
	c.n++
	return nil
}

func TestMultiPublishesToEverySink(t *testing.T) {
	boom := errors.New("boom")
	c := &counting{}
	m := Multi{failing{boom}, c, NewLog(nil)}

	err := m.Publish(context.Background(), rollup.Event{Type: rollup.EventDeposited})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, c.n)

	require.NoError(t, Multi{c}.Publish(context.Background(), rollup.Event{}))
	require.Equal(t, 2, c.n)
}
