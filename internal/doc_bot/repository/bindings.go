// Package repository provides the storage layer of the document bot: the
// durable user-to-template bindings, the volatile dialogue sessions and the
// authorized users list.
package repository

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// TemplateBindings maps chat IDs to the template each user currently works
// with. The mapping is held in memory and persisted to a JSON file on every
// change, so it survives process restarts.
type TemplateBindings struct {
	buffer          map[int64]string
	storageFilePath string
	mu              *sync.RWMutex
}

// NewTemplateBindings creates a TemplateBindings instance with an empty memory buffer.
// Arguments:
//   - storagePath: file path where bindings are persisted.
//
// Returns a pointer to a TemplateBindings.
func NewTemplateBindings(storagePath string) *TemplateBindings {
	return &TemplateBindings{
		buffer:          make(map[int64]string),
		storageFilePath: storagePath,
		mu:              &sync.RWMutex{},
	}
}

// ReadFileToMemory reads persisted bindings from the storage file into the in-memory buffer.
// A missing or empty file is not an error: the bot starts with no bindings.
func (m *TemplateBindings) ReadFileToMemory() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.storageFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.Infof("Storage file %s does not exist, starting with empty buffer", m.storageFilePath)
			return nil
		}
		err = fmt.Errorf("failed to read storage file %s: %w", m.storageFilePath, err)
		logrus.WithError(err).Error("Error reading storage file")
		return err
	}

	if len(data) == 0 {
		logrus.Infof("Storage file %s is empty, starting with empty buffer", m.storageFilePath)
		return nil
	}

	var buffer map[int64]string
	if err = json.Unmarshal(data, &buffer); err != nil {
		err = fmt.Errorf("failed to unmarshal storage file %s: %w", m.storageFilePath, err)
		logrus.WithError(err).Error("Error parsing storage file")
		return err
	}

	m.buffer = buffer
	logrus.Infof("Loaded %d template bindings from %s", len(m.buffer), m.storageFilePath)
	return nil
}

// SetTemplate binds a chat to a template name, replacing any previous binding,
// and persists the whole mapping.
func (m *TemplateBindings) SetTemplate(chatID int64, templateName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buffer[chatID] = templateName
	return m.saveLocked()
}

// Template returns the template bound to the chat, if any.
func (m *TemplateBindings) Template(chatID int64) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name, ok := m.buffer[chatID]
	return name, ok
}

// saveLocked persists the in-memory buffer to the storage file.
// Writes go to a temporary file first so the replace is atomic.
// The caller must hold the write lock.
func (m *TemplateBindings) saveLocked() error {
	tempPath := m.storageFilePath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		err = fmt.Errorf("failed to open temp file %s: %w", tempPath, err)
		logrus.WithError(err).Error("Error saving bindings to file")
		return err
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	if err = encoder.Encode(m.buffer); err != nil {
		file.Close()
		err = fmt.Errorf("failed to encode bindings to temp file %s: %w", tempPath, err)
		logrus.WithError(err).Error("Error encoding bindings")
		return err
	}
	if err = writer.Flush(); err != nil {
		file.Close()
		err = fmt.Errorf("failed to flush temp file %s: %w", tempPath, err)
		logrus.WithError(err).Error("Error flushing bindings")
		return err
	}
	if err = file.Close(); err != nil {
		return fmt.Errorf("failed to close temp file %s: %w", tempPath, err)
	}

	if err = os.Rename(tempPath, m.storageFilePath); err != nil {
		err = fmt.Errorf("failed to rename temp file %s to %s: %w", tempPath, m.storageFilePath, err)
		logrus.WithError(err).Error("Error finalizing bindings save")
		return err
	}
	return nil
}
