// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cluster

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/go-lpc/pxd/cluster")

const (
	// layerKey associates each record with the detector layer of the sensor.
	layerKey = "layer"
)

var (
	// hitsCounter counts the number of reconstructed hits.
	hitsCounter metric.Int64Counter
	// rejectedCounter counts the clusters rejected by the total charge cut.
	rejectedCounter metric.Int64Counter
	// skippedCounter counts the sensors skipped because of a configuration error.
	skippedCounter metric.Int64Counter
	// clusterSize measures the number of digits of reconstructed hits.
	clusterSize metric.Int64Histogram
)

func init() {
	var err error
	hitsCounter, err = meter.Int64Counter(
		"pxd.hits",
		metric.WithDescription("The number of reconstructed pixel hits."),
	)
	if err != nil {
		panic(fmt.Sprintf("cluster: failed to init 'pxd.hits' instrument: %v", err))
	}

	rejectedCounter, err = meter.Int64Counter(
		"pxd.clusters.rejected",
		metric.WithDescription("The number of clusters below the total charge cut."),
	)
	if err != nil {
		panic(fmt.Sprintf("cluster: failed to init 'pxd.clusters.rejected' instrument: %v", err))
	}

	skippedCounter, err = meter.Int64Counter(
		"pxd.sensors.skipped",
		metric.WithDescription("The number of sensors skipped because of a configuration error."),
	)
	if err != nil {
		panic(fmt.Sprintf("cluster: failed to init 'pxd.sensors.skipped' instrument: %v", err))
	}

	clusterSize, err = meter.Int64Histogram(
		"pxd.cluster.size",
		metric.WithDescription("The number of digits of reconstructed clusters."),
	)
	if err != nil {
		panic(fmt.Sprintf("cluster: failed to init 'pxd.cluster.size' instrument: %v", err))
	}
}

func measureSensor(ctx context.Context, layer int, res SensorResult) {
	attrs := metric.WithAttributeSet(attribute.NewSet(attribute.Int(layerKey, layer)))
	hitsCounter.Add(ctx, int64(len(res.Hits)), attrs)
	rejectedCounter.Add(ctx, int64(res.Rejected), attrs)
	for _, hit := range res.Hits {
		clusterSize.Record(ctx, int64(hit.Size), attrs)
	}
}

func measureSkipped(ctx context.Context, layer int) {
	attrs := attribute.NewSet(attribute.Int(layerKey, layer))
	skippedCounter.Add(ctx, 1, metric.WithAttributeSet(attrs))
}
