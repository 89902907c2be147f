// Package influxdb archives sensor readings in InfluxDB.
//
// The realtime store only keeps what the nodes push; this package keeps a
// long-term copy for trend queries. Each new reading becomes one point of
// the sensor_readings measurement tagged by device (and place when
// known). Pump commands and presence transitions are archived alongside.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteReading("device_001", "North Field", r)
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Batch errors are delivered to the SetOnError callback.
package influxdb
