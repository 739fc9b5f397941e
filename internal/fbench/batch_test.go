package fbench

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func descriptors(host string, port int, delays ...float64) []Descriptor {
	ds := make([]Descriptor, len(delays))
	for i, delay := range delays {
		ds[i] = Descriptor{Host: host, Port: port, Delay: delay}
	}
	return ds
}

func TestFetchAllOrderAndBodies(t *testing.T) {
	host, port := startServer(t, &Server{Charset: "UTF-8"})
	f := NewFetcher(DefaultTimeout, "")

	ds := descriptors(host, port, 0.1, 0.5, 0.3, 0.2)
	report, err := f.FetchAll(context.Background(), ds)
	require.NoError(t, err)
	require.Len(t, report.Results, len(ds))

	for i, result := range report.Results {
		require.Equal(t, ds[i], result.Descriptor)
		require.NoError(t, result.Err)
		require.Equal(t, fmt.Sprintf("Waited for %.2f seconds.", ds[i].Delay), result.Body)
	}
	require.InDelta(t, 1.1, report.SumOfDelays, 1e-9)
}

func TestFetchAllConcurrencySpeedup(t *testing.T) {
	host, port := startServer(t, &Server{})
	f := NewFetcher(DefaultTimeout, "")

	ds := descriptors(host, port, 0.1, 0.5, 0.3, 0.2)
	report, err := f.FetchAll(context.Background(), ds)
	require.NoError(t, err)

	// Wall time tracks the slowest fetch, not the sum.
	require.GreaterOrEqual(t, report.Elapsed, 500*time.Millisecond)
	require.Less(t, report.Elapsed, 1000*time.Millisecond)
}

func TestFetchSequential(t *testing.T) {
	host, port := startServer(t, &Server{})
	f := NewFetcher(DefaultTimeout, "")

	ds := descriptors(host, port, 0.1, 0.2, 0.1)
	report, err := f.FetchSequential(context.Background(), ds)
	require.NoError(t, err)

	require.GreaterOrEqual(t, report.Elapsed, 400*time.Millisecond)
	for i, result := range report.Results {
		require.Equal(t, ds[i], result.Descriptor)
		require.NoError(t, result.Err)
	}
}

func TestFetchAllEmptyBatch(t *testing.T) {
	f := NewFetcher(DefaultTimeout, "")

	_, err := f.FetchAll(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyBatch)

	_, err = f.FetchSequential(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyBatch)
}

func TestFetchAllIdempotent(t *testing.T) {
	host, port := startServer(t, &Server{})
	f := NewFetcher(DefaultTimeout, "")

	ds := descriptors(host, port, 0.05, 0.1)
	first, err := f.FetchAll(context.Background(), ds)
	require.NoError(t, err)
	second, err := f.FetchAll(context.Background(), ds)
	require.NoError(t, err)

	for i := range ds {
		require.NoError(t, first.Results[i].Err)
		require.NoError(t, second.Results[i].Err)
		require.Equal(t, first.Results[i].Body, second.Results[i].Body)
	}
}

func TestFetchAllFaultIsolation(t *testing.T) {
	host, port := startServer(t, &Server{})
	f := NewFetcher(DefaultTimeout, "")

	ds := []Descriptor{
		{Host: host, Port: port, Delay: 0.05},
		{Host: host, Port: unusedPort(t), Delay: 0.05},
		{Host: host, Port: port, Delay: 0.1},
	}

	report, err := f.FetchAll(context.Background(), ds)
	require.NoError(t, err)
	require.Len(t, report.Results, 3)

	require.NoError(t, report.Results[0].Err)
	require.ErrorIs(t, report.Results[1].Err, ErrConnectionFailed)
	require.NoError(t, report.Results[2].Err)
	require.Equal(t, "Waited for 0.05 seconds.", report.Results[0].Body)
	require.Equal(t, "Waited for 0.10 seconds.", report.Results[2].Body)
}

func TestFetchAllTimeoutIsolation(t *testing.T) {
	host, port := startServer(t, &Server{})
	f := NewFetcher(300*time.Millisecond, "")

	ds := descriptors(host, port, 0.05, 5, 0.1)
	report, err := f.FetchAll(context.Background(), ds)
	require.NoError(t, err)

	require.NoError(t, report.Results[0].Err)
	require.ErrorIs(t, report.Results[1].Err, ErrTimeout)
	require.NoError(t, report.Results[2].Err)
}

func TestReportSummary(t *testing.T) {
	report := Report{
		Results: []Result{
			{RTT: 100 * time.Millisecond},
			{RTT: 300 * time.Millisecond},
			{RTT: time.Hour, Err: ErrTimeout},
		},
		Elapsed:     310 * time.Millisecond,
		SumOfDelays: 0.4,
	}

	s := report.Summary()
	require.Equal(t, 3, s.Requests)
	require.Equal(t, 1, s.Failed)
	require.Equal(t, 200*time.Millisecond, s.MeanRTT)
	require.Equal(t, 300*time.Millisecond, s.MaxRTT)
	require.Equal(t, 310*time.Millisecond, s.Elapsed)
	require.InDelta(t, 0.4, s.SumOfDelays, 1e-9)
}
