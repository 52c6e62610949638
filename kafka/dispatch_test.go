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
	"testing"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/ooi-data/rca-echo-tools/test"
	"github.com/pkg/errors"
)

var req = RunRequest{
	RunName:         RunName("CE02SHBP-MJ01C-07-ZPLSCB101", "2025/01/01", "2025/01/05"),
	Refdes:          "CE02SHBP-MJ01C-07-ZPLSCB101",
	StartDate:       "2025/01/01",
	EndDate:         "2025/01/05",
	WaveformMode:    "CW",
	EncodeMode:      "power",
	SonarModel:      "EK60",
	DataBucket:      "s3://ooi-data",
	MetadataBucket:  "s3://flow-process-bucket",
	RunType:         "append",
	BatchSizeDays:   2,
	StrictVariables: true,
}

func TestRunName(t *testing.T) {
	test.MustBe(t, "CE02SHBP-MJ01C-07-ZPLSCB101_20250101_20250105", req.RunName)
}

func TestCodec(t *testing.T) {
	c, err := NewCodec()
	test.ErrNil(t, err, "NewCodec")
	data, err := c.Encode(req)
	test.ErrNil(t, err, "Encode")
	if data[0] != 0 || data[4] != schemaID {
		t.Fatalf("unexpected framing %x", data[:5])
	}
	got, err := c.Decode(data)
	test.ErrNil(t, err, "Decode")
	test.MustBe(t, req, got)

	if _, err := c.Decode([]byte(`{"run_name": "json"}`)); err == nil {
		t.Fatalf("expected error decoding unframed message")
	}
	data[4] = 9
	if _, err := c.Decode(data); err == nil {
		t.Fatalf("expected error decoding unknown schema id")
	}
}

func TestDispatcher(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewProducerConfig())
	c, err := NewCodec()
	test.ErrNil(t, err, "NewCodec")
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		got, err := c.Decode(val)
		if err != nil {
			return err
		}
		if got != req {
			return errors.Errorf("dispatched %+v", got)
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	d, err := NewDispatcherWithProducer(producer, DefaultTopic, nil)
	test.ErrNil(t, err, "NewDispatcherWithProducer")
	test.ErrNil(t, d.Dispatch(req), "Dispatch")
	if err := d.Dispatch(req); err == nil {
		t.Fatalf("expected failed send to be reported")
	}
	test.ErrNil(t, d.Close(), "Close")
}

func TestDispatcherPartitionsByInstrument(t *testing.T) {
	d, err := NewDispatcherWithProducer(mocks.NewSyncProducer(t, NewProducerConfig()), DefaultTopic, nil)
	test.ErrNil(t, err, "NewDispatcherWithProducer")
	partitioner := NewProducerConfig().Producer.Partitioner(DefaultTopic)

	partitions := make(map[string]map[int32]bool)
	for _, refdes := range []string{"CE04OSPS-PC01B-05-ZPLSCB102", "CE02SHBP-MJ01C-07-ZPLSCB101"} {
		partitions[refdes] = make(map[int32]bool)
		for _, days := range [][2]string{
			{"2025/01/01", "2025/01/02"},
			{"2025/01/03", "2025/01/04"},
			{"2025/01/05", "2025/01/06"},
			{"2025/01/07", "2025/01/08"},
		} {
			r := req
			r.Refdes, r.StartDate, r.EndDate = refdes, days[0], days[1]
			r.RunName = RunName(refdes, days[0], days[1])
			msg, err := d.message(r)
			test.ErrNil(t, err, "message")
			p, err := partitioner.Partition(msg, 8)
			test.ErrNil(t, err, "Partition")
			partitions[refdes][p] = true
		}
		if len(partitions[refdes]) != 1 {
			t.Fatalf("runs for %s spread over partitions %v", refdes, partitions[refdes])
		}
	}
}

func TestWorkerHandle(t *testing.T) {
	var ran []RunRequest
	fail := errors.New("calibration failed")
	w, err := NewWorker(nil, DefaultTopic, "workers", func(ctx context.Context, r RunRequest) error {
		ran = append(ran, r)
		if len(ran) > 1 {
			return fail
		}
		return nil
	}, nil)
	test.ErrNil(t, err, "NewWorker")
	data, err := w.codec.Encode(req)
	test.ErrNil(t, err, "Encode")

	test.ErrNil(t, w.Handle(context.Background(), data), "Handle")
	if err := w.Handle(context.Background(), data); errors.Cause(err) != fail {
		t.Fatalf("expected run failure, got %v", err)
	}
	if err := w.Handle(context.Background(), []byte("garbage")); err == nil {
		t.Fatalf("expected error for garbage message")
	}
	if len(ran) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(ran))
	}
}
