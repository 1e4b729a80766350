package fetcher

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"taxipulse/internal/config"
	"taxipulse/internal/errors"
	"taxipulse/pkg/contracts/domain"
)

// WeatherSource supplies the daily precipitation series for the study
// window.
type WeatherSource interface {
	DailyPrecipitation(ctx context.Context) ([]domain.DailyPrecipitation, error)
}

// WeatherClient fetches daily precipitation from the open-meteo archive
// API for a single fixed point and caches the series on disk. The API
// is only hit when the cache file is absent.
type WeatherClient struct {
	cfg       config.WeatherConfig
	client    *http.Client
	cachePath string
	logger    *slog.Logger
}

// NewWeatherClient creates a weather client caching under cachePath.
func NewWeatherClient(cfg config.WeatherConfig, cachePath string, logger *slog.Logger) *WeatherClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &WeatherClient{
		cfg:       cfg,
		client:    &http.Client{Timeout: 2 * time.Minute},
		cachePath: cachePath,
		logger:    logger,
	}
}

// archiveResponse mirrors the open-meteo archive payload. Days without
// a reading carry null, decoded here as a nil pointer.
type archiveResponse struct {
	Daily struct {
		Time             []string   `json:"time"`
		PrecipitationSum []*float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// DailyPrecipitation returns the cached series, fetching and caching it
// first when no cache exists. Days the archive reports as null come
// back with zero precipitation, so a missing reading never counts as a
// rainy day downstream.
func (w *WeatherClient) DailyPrecipitation(ctx context.Context) ([]domain.DailyPrecipitation, error) {
	if config.FileExists(w.cachePath) {
		return w.readCache()
	}

	days, err := w.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := w.writeCache(days); err != nil {
		return nil, err
	}

	w.logger.InfoContext(ctx, "cached daily weather series",
		slog.String("path", w.cachePath),
		slog.Int("days", len(days)))

	return days, nil
}

func (w *WeatherClient) fetch(ctx context.Context) ([]domain.DailyPrecipitation, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(w.cfg.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(w.cfg.Longitude, 'f', -1, 64))
	q.Set("start_date", w.cfg.StartDate)
	q.Set("end_date", w.cfg.EndDate)
	q.Set("daily", "precipitation_sum")
	q.Set("timezone", w.cfg.Timezone)
	reqURL := w.cfg.BaseURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.NewFetchError("failed to build weather request", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, errors.NewFetchError("weather request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewFetchError(fmt.Sprintf("unexpected weather API status %d", resp.StatusCode), nil)
	}

	var payload archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.NewParsingError("failed to decode weather response", err)
	}
	if len(payload.Daily.Time) != len(payload.Daily.PrecipitationSum) {
		return nil, errors.NewParsingError(
			fmt.Sprintf("weather series length mismatch: %d dates, %d readings",
				len(payload.Daily.Time), len(payload.Daily.PrecipitationSum)), nil)
	}

	days := make([]domain.DailyPrecipitation, 0, len(payload.Daily.Time))
	for i, date := range payload.Daily.Time {
		var precip float64
		if payload.Daily.PrecipitationSum[i] != nil {
			precip = *payload.Daily.PrecipitationSum[i]
		}
		days = append(days, domain.DailyPrecipitation{Date: date, Precipitation: precip})
	}

	return days, nil
}

func (w *WeatherClient) writeCache(days []domain.DailyPrecipitation) error {
	if err := os.MkdirAll(filepath.Dir(w.cachePath), 0755); err != nil {
		return errors.NewStorageError("failed to create cache directory", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(w.cachePath), "weather-*.tmp")
	if err != nil {
		return errors.NewStorageError("failed to create temp weather cache", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	writer := csv.NewWriter(tmp)
	if err := writer.Write([]string{"date", "precipitation"}); err != nil {
		tmp.Close()
		return errors.NewStorageError("failed to write weather cache header", err)
	}
	for _, day := range days {
		record := []string{day.Date, strconv.FormatFloat(day.Precipitation, 'f', -1, 64)}
		if err := writer.Write(record); err != nil {
			tmp.Close()
			return errors.NewStorageError("failed to write weather cache row", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return errors.NewStorageError("failed to flush weather cache", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewStorageError("failed to close temp weather cache", err)
	}

	if err := os.Rename(tmpName, w.cachePath); err != nil {
		return errors.NewStorageError("failed to commit weather cache", err)
	}

	return nil
}

func (w *WeatherClient) readCache() ([]domain.DailyPrecipitation, error) {
	file, err := os.Open(w.cachePath)
	if err != nil {
		return nil, errors.NewStorageError("failed to open weather cache", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.NewParsingError("failed to read weather cache", err)
	}
	if len(records) == 0 {
		return nil, errors.NewParsingError("weather cache is empty", nil)
	}

	days := make([]domain.DailyPrecipitation, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) != 2 {
			return nil, errors.NewParsingError("malformed weather cache row", nil)
		}
		precip, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, errors.NewParsingError(fmt.Sprintf("bad precipitation value %q", record[1]), err)
		}
		days = append(days, domain.DailyPrecipitation{Date: record[0], Precipitation: precip})
	}

	return days, nil
}
