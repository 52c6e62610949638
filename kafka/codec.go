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

// Package kafka dispatches harvest runs to workers over a Kafka topic.
package kafka

import (
	"encoding/binary"
	"strings"

	avro "github.com/elodina/go-avro"
	"github.com/linkedin/goavro"
	"github.com/pkg/errors"
)

// DefaultTopic carries harvest run requests.
const DefaultTopic = "echo-raw-data-harvest"

// schemaID is written after the magic byte of every message so the schema
// can evolve.
const schemaID = 1

// RunRequestSchema is the Avro schema of a RunRequest.
const RunRequestSchema = `{
    "type": "record",
    "name": "RunRequest",
    "namespace": "org.ooi.rca.echo",
    "fields": [
        {"name": "run_name", "type": "string"},
        {"name": "refdes", "type": "string"},
        {"name": "start_date", "type": "string"},
        {"name": "end_date", "type": "string"},
        {"name": "waveform_mode", "type": "string"},
        {"name": "encode_mode", "type": "string"},
        {"name": "sonar_model", "type": "string"},
        {"name": "data_bucket", "type": "string"},
        {"name": "metadata_bucket", "type": "string"},
        {"name": "run_type", "type": "string"},
        {"name": "batch_size_days", "type": "int"},
        {"name": "strict_variables", "type": "boolean"}
    ]
}`

// RunRequest is the message published for one harvest run.
type RunRequest struct {
	RunName         string
	Refdes          string
	StartDate       string
	EndDate         string
	WaveformMode    string
	EncodeMode      string
	SonarModel      string
	DataBucket      string
	MetadataBucket  string
	RunType         string
	BatchSizeDays   int
	StrictVariables bool
}

// RunName names a run by instrument and dates, with the slashes of the dates
// removed.
func RunName(refdes, start, end string) string {
	return strings.Replace(refdes+"_"+start+"_"+end, "/", "", -1)
}

// Codec encodes RunRequests with goavro and decodes them with go-avro's
// generic reader. Messages are framed as a zero magic byte, a big endian
// schema id and the Avro body.
type Codec struct {
	enc *goavro.Codec
	dec avro.Schema
}

// NewCodec gets a Codec for RunRequestSchema.
func NewCodec() (*Codec, error) {
	enc, err := goavro.NewCodec(RunRequestSchema)
	if err != nil {
		return nil, errors.Wrap(err, "building encoder")
	}
	dec, err := avro.ParseSchema(RunRequestSchema)
	if err != nil {
		return nil, errors.Wrap(err, "parsing schema")
	}
	return &Codec{enc: enc, dec: dec}, nil
}

// Encode frames and encodes r.
func (c *Codec) Encode(r RunRequest) ([]byte, error) {
	buf := make([]byte, 5, 256)
	binary.BigEndian.PutUint32(buf[1:], schemaID)
	out, err := c.enc.BinaryFromNative(buf, map[string]interface{}{
		"run_name":         r.RunName,
		"refdes":           r.Refdes,
		"start_date":       r.StartDate,
		"end_date":         r.EndDate,
		"waveform_mode":    r.WaveformMode,
		"encode_mode":      r.EncodeMode,
		"sonar_model":      r.SonarModel,
		"data_bucket":      r.DataBucket,
		"metadata_bucket":  r.MetadataBucket,
		"run_type":         r.RunType,
		"batch_size_days":  int32(r.BatchSizeDays),
		"strict_variables": r.StrictVariables,
	})
	return out, errors.Wrap(err, "encoding run request")
}

// Decode reads a framed RunRequest.
func (c *Codec) Decode(val []byte) (RunRequest, error) {
	if len(val) <= 5 || val[0] != 0 {
		return RunRequest{}, errors.Errorf("unexpected magic byte or length in run request, should be 0x00, but got 0x%.8x", val)
	}
	if id := binary.BigEndian.Uint32(val[1:5]); id != schemaID {
		return RunRequest{}, errors.Errorf("unknown run request schema id %d", id)
	}
	reader := avro.NewGenericDatumReader()
	reader.SetSchema(c.dec)
	rec := avro.NewGenericRecord(c.dec)
	if err := reader.Read(rec, avro.NewBinaryDecoder(val[5:])); err != nil {
		return RunRequest{}, errors.Wrap(err, "decoding run request")
	}
	m := rec.Map()
	var r RunRequest
	var ok [12]bool
	r.RunName, ok[0] = m["run_name"].(string)
	r.Refdes, ok[1] = m["refdes"].(string)
	r.StartDate, ok[2] = m["start_date"].(string)
	r.EndDate, ok[3] = m["end_date"].(string)
	r.WaveformMode, ok[4] = m["waveform_mode"].(string)
	r.EncodeMode, ok[5] = m["encode_mode"].(string)
	r.SonarModel, ok[6] = m["sonar_model"].(string)
	r.DataBucket, ok[7] = m["data_bucket"].(string)
	r.MetadataBucket, ok[8] = m["metadata_bucket"].(string)
	r.RunType, ok[9] = m["run_type"].(string)
	var days int32
	days, ok[10] = m["batch_size_days"].(int32)
	r.BatchSizeDays = int(days)
	r.StrictVariables, ok[11] = m["strict_variables"].(bool)
	for i, good := range ok {
		if !good {
			return RunRequest{}, errors.Errorf("run request field %d has unexpected type", i)
		}
	}
	return r, nil
}
