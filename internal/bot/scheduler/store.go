package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	customerrors "github.com/central-university-dev/go-channel-poster/internal/domain/errors"
	"github.com/central-university-dev/go-channel-poster/internal/domain/models"
)

const (
	recordPrefix = "pending_post_"
	recordSuffix = ".json"
	claimSuffix  = ".firing"

	dirPerm  = 0o700
	filePerm = 0o600
)

// JobStore хранит задачи отложенной публикации по одному JSON файлу на задачу.
type JobStore struct {
	dir string
}

func NewJobStore(dir string) (*JobStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, &customerrors.ErrConfiguration{Key: "JOBS_DIR", Reason: "не задан каталог задач"}
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, &customerrors.ErrStorage{Operation: customerrors.OpWriteJob, Cause: err}
	}

	return &JobStore{dir: dir}, nil
}

func (s *JobStore) Dir() string {
	return s.dir
}

func (s *JobStore) PathFor(jobID string) string {
	return filepath.Join(s.dir, recordPrefix+jobID+recordSuffix)
}

// Write атомарно записывает задачу: временный файл, fsync, rename.
func (s *JobStore) Write(job *models.PublishJob) (string, error) {
	content, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return "", &customerrors.ErrStorage{Operation: customerrors.OpWriteJob, Cause: err}
	}

	path := s.PathFor(job.ID)

	if err := writeAtomic(path, content); err != nil {
		return "", &customerrors.ErrStorage{Operation: customerrors.OpWriteJob, Cause: err}
	}

	return path, nil
}

func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("создание временного файла для %s: %w", path, err)
	}

	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("запись временного файла для %s: %w", path, err)
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync временного файла для %s: %w", path, err)
	}

	if err := tmp.Chmod(filePerm); err != nil {
		return fmt.Errorf("chmod временного файла для %s: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("закрытие временного файла для %s: %w", path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename временного файла для %s: %w", path, err)
	}

	if dirFD, err := os.Open(dir); err == nil {
		_ = dirFD.Sync()
		_ = dirFD.Close()
	}

	return nil
}

// Read читает задачу. ok == false, если файла нет.
func (s *JobStore) Read(path string) (*models.PublishJob, bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}

		return nil, false, &customerrors.ErrStorage{Operation: customerrors.OpReadJob, Cause: err}
	}

	var job models.PublishJob
	if err := json.Unmarshal(content, &job); err != nil {
		return nil, false, &customerrors.ErrStorage{Operation: customerrors.OpReadJob, Cause: err}
	}

	if job.Fields == nil {
		job.Fields = make(map[string]string)
	}

	return &job, true, nil
}

// Claim переименовывает запись, чтобы ее обработал только один вызов Fire.
// ok == false, если запись уже забрана или удалена.
func (s *JobStore) Claim(path string) (string, bool, error) {
	claimed := path + claimSuffix

	if err := os.Rename(path, claimed); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}

		return "", false, &customerrors.ErrStorage{Operation: customerrors.OpReadJob, Cause: err}
	}

	return claimed, true, nil
}

// Delete удаляет файл. Отсутствие файла ошибкой не считается.
func (s *JobStore) Delete(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &customerrors.ErrStorage{Operation: customerrors.OpDeleteJob, Cause: err}
	}

	return nil
}

// Release возвращает забранную запись в ожидающие. Нужен, если процесс
// завершился между Claim и Delete.
func (s *JobStore) Release(claimed string) (string, error) {
	if !strings.HasSuffix(claimed, claimSuffix) {
		return "", &customerrors.ErrStorage{
			Operation: customerrors.OpReadJob,
			Cause:     fmt.Errorf("не забранная запись: %s", claimed),
		}
	}

	path := strings.TrimSuffix(claimed, claimSuffix)

	if err := os.Rename(claimed, path); err != nil {
		return "", &customerrors.ErrStorage{Operation: customerrors.OpWriteJob, Cause: err}
	}

	return path, nil
}

// ListClaimed возвращает записи, забранные вызовом Fire, который не дошел до удаления.
func (s *JobStore) ListClaimed() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, recordPrefix+"*"+recordSuffix+claimSuffix))
	if err != nil {
		return nil, &customerrors.ErrStorage{Operation: customerrors.OpListJobs, Cause: err}
	}

	sort.Strings(paths)

	return paths, nil
}

// List возвращает пути ожидающих задач в порядке имен (ULID упорядочен по времени создания).
func (s *JobStore) List() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, recordPrefix+"*"+recordSuffix))
	if err != nil {
		return nil, &customerrors.ErrStorage{Operation: customerrors.OpListJobs, Cause: err}
	}

	sort.Strings(paths)

	return paths, nil
}
