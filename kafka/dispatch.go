// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package kafka

import (
	"context"
	"io/ioutil"
	"log"

	"github.com/Shopify/sarama"
	cluster "github.com/bsm/sarama-cluster"
	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/pkg/errors"
)

// Dispatcher publishes run requests.
type Dispatcher struct {
	Topic    string
	producer sarama.SyncProducer
	codec    *Codec
	log      echo.Logger
}

// NewProducerConfig is the sarama configuration used by Dispatchers.
func NewProducerConfig() *sarama.Config {
	conf := sarama.NewConfig()
	conf.Version = sarama.V0_10_0_0
	conf.Producer.Return.Successes = true
	conf.Producer.RequiredAcks = sarama.WaitForAll
	conf.Producer.Partitioner = sarama.NewHashPartitioner
	return conf
}

// NewDispatcher connects a Dispatcher to the brokers at hosts.
func NewDispatcher(hosts []string, topic string, log echo.Logger) (*Dispatcher, error) {
	producer, err := sarama.NewSyncProducer(hosts, NewProducerConfig())
	if err != nil {
		return nil, errors.Wrap(err, "getting new producer")
	}
	return NewDispatcherWithProducer(producer, topic, log)
}

// NewDispatcherWithProducer gets a Dispatcher sending through producer.
func NewDispatcherWithProducer(producer sarama.SyncProducer, topic string, log echo.Logger) (*Dispatcher, error) {
	codec, err := NewCodec()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = echo.NopLogger{}
	}
	return &Dispatcher{Topic: topic, producer: producer, codec: codec, log: log}, nil
}

// Dispatch publishes r keyed by its instrument, so every run for one store
// lands on one partition and is handled by one worker at a time, in order.
func (d *Dispatcher) Dispatch(r RunRequest) error {
	msg, err := d.message(r)
	if err != nil {
		return err
	}
	partition, offset, err := d.producer.SendMessage(msg)
	if err != nil {
		return errors.Wrapf(err, "sending run %s", r.RunName)
	}
	d.log.Printf("dispatched run %s to %s partition %d offset %d", r.RunName, d.Topic, partition, offset)
	return nil
}

func (d *Dispatcher) message(r RunRequest) (*sarama.ProducerMessage, error) {
	val, err := d.codec.Encode(r)
	if err != nil {
		return nil, err
	}
	return &sarama.ProducerMessage{
		Topic: d.Topic,
		Key:   sarama.StringEncoder(r.Refdes),
		Value: sarama.ByteEncoder(val),
	}, nil
}

// Close closes the producer.
func (d *Dispatcher) Close() error {
	return errors.Wrap(d.producer.Close(), "closing producer")
}

// Runner executes one run request.
type Runner func(ctx context.Context, r RunRequest) error

// Worker consumes run requests and executes them one at a time.
type Worker struct {
	Hosts []string
	Topic string
	Group string
	Run   Runner
	Log   echo.Logger

	codec *Codec
}

// NewWorker gets a Worker.
func NewWorker(hosts []string, topic, group string, run Runner, log echo.Logger) (*Worker, error) {
	codec, err := NewCodec()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = echo.NopLogger{}
	}
	return &Worker{Hosts: hosts, Topic: topic, Group: group, Run: run, Log: log, codec: codec}, nil
}

// Handle decodes and runs one message value. A failed run is logged and
// reported but the message still counts as handled, since runs are not
// retried automatically.
func (w *Worker) Handle(ctx context.Context, val []byte) error {
	r, err := w.codec.Decode(val)
	if err != nil {
		return errors.Wrap(err, "decoding message")
	}
	w.Log.Printf("starting run %s", r.RunName)
	if err := w.Run(ctx, r); err != nil {
		return errors.Wrapf(err, "run %s", r.RunName)
	}
	w.Log.Printf("finished run %s", r.RunName)
	return nil
}

// Consume handles messages until ctx is done or the consumer closes.
func (w *Worker) Consume(ctx context.Context) error {
	sarama.Logger = log.New(ioutil.Discard, "", 0)
	config := cluster.NewConfig()
	config.Config.Version = sarama.V0_10_0_0
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Group.Return.Notifications = true

	consumer, err := cluster.NewConsumer(w.Hosts, w.Group, []string{w.Topic}, config)
	if err != nil {
		return errors.Wrap(err, "getting new consumer")
	}
	defer consumer.Close()

	go func() {
		for err := range consumer.Errors() {
			w.Log.Printf("consumer error: %v", err)
		}
	}()
	go func() {
		for ntf := range consumer.Notifications() {
			w.Log.Debugf("rebalanced: %+v", ntf)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-consumer.Messages():
			if !ok {
				return errors.New("messages channel closed")
			}
			if err := w.Handle(ctx, msg.Value); err != nil {
				w.Log.Printf("%v", err)
			}
			consumer.MarkOffset(msg, "")
		}
	}
}
