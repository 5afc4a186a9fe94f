package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNothingToBackup is returned when the list file does not exist yet.
	ErrNothingToBackup = errors.New("backup: no list file to upload")
	// ErrBackupDisabled is returned when no remote target is configured.
	ErrBackupDisabled = errors.New("backup: no upload target configured")
)

// Uploader stores a local file in a remote object store under key and
// returns the location it reports.
type Uploader interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}

// backupKey names a snapshot taken at t.
func backupKey(t time.Time) string {
	return "backup/shopping_list_" + t.UTC().Format("20060102_150405") + ".json"
}

// BackupConnector uploads the list file and records successful uploads.
type BackupConnector struct {
	path     string
	uploader Uploader
	ledger   BackupLedger
	timeout  time.Duration
	log      *logrus.Logger
	now      func() time.Time
}

func NewBackupConnector(path string, up Uploader, ledger BackupLedger, timeout time.Duration, log *logrus.Logger) *BackupConnector {
	return &BackupConnector{
		path:     path,
		uploader: up,
		ledger:   ledger,
		timeout:  timeout,
		log:      log,
		now:      time.Now,
	}
}

// Backup uploads the current list file. Any returned error means the
// backup did not happen.
func (c *BackupConnector) Backup(ctx context.Context) (BackupRecord, error) {
	rec, err := c.backup(ctx)
	if err != nil {
		backupRuns.WithLabelValues("failure").Inc()
		return BackupRecord{}, err
	}
	backupRuns.WithLabelValues("success").Inc()
	return rec, nil
}

func (c *BackupConnector) backup(ctx context.Context) (BackupRecord, error) {
	if c.uploader == nil {
		return BackupRecord{}, ErrBackupDisabled
	}
	info, err := os.Stat(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return BackupRecord{}, ErrNothingToBackup
		}
		return BackupRecord{}, fmt.Errorf("stat list file: %w", err)
	}

	uploadCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		uploadCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	now := c.now()
	key := backupKey(now)
	url, err := c.uploader.Upload(uploadCtx, c.path, key)
	if err != nil {
		return BackupRecord{}, fmt.Errorf("upload %s: %w", key, err)
	}

	rec := BackupRecord{
		Key:       key,
		URL:       url,
		SizeBytes: info.Size(),
		CreatedAt: now.UTC().Format(time.RFC3339),
	}
	if c.ledger != nil {
		if err := c.ledger.Record(ctx, rec); err != nil {
			c.log.WithError(err).WithField("key", key).Warn("backup uploaded but not recorded")
		}
	}
	c.log.WithFields(logrus.Fields{"key": key, "bytes": rec.SizeBytes}).Info("backup uploaded")
	return rec, nil
}

// cloudinaryUploader stores backups as raw Cloudinary assets.
type cloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

func newCloudinaryUploader(cloudURL string) (*cloudinaryUploader, error) {
	cld, err := cloudinary.NewFromURL(cloudURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &cloudinaryUploader{cld: cld}, nil
}

func (u *cloudinaryUploader) Upload(ctx context.Context, localPath, key string) (string, error) {
	res, err := u.cld.Upload.Upload(ctx, localPath, uploader.UploadParams{
		PublicID:     key,
		ResourceType: "raw",
		Overwrite:    api.Bool(true),
	})
	if err != nil {
		return "", err
	}
	if res.Error.Message != "" {
		return "", errors.New(res.Error.Message)
	}
	return res.SecureURL, nil
}

// dirUploader copies backups into a local directory. Used in DEV_MODE.
type dirUploader struct {
	dir string
}

func (u *dirUploader) Upload(ctx context.Context, localPath, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst := filepath.Join(u.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	src, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("copy backup: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", err
	}
	return dst, nil
}

// startBackupSchedule runs a backup on every tick of spec until the
// returned scheduler is stopped.
func startBackupSchedule(spec string, c *BackupConnector, log *logrus.Logger) (*cron.Cron, error) {
	sched := cron.New()
	_, err := sched.AddFunc(spec, func() {
		rec, err := c.Backup(context.Background())
		if err != nil {
			log.WithError(err).Error("scheduled backup failed")
			return
		}
		log.WithField("key", rec.Key).Info("scheduled backup done")
	})
	if err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", spec, err)
	}
	sched.Start()
	return sched, nil
}
