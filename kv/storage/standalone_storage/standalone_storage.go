package standalone_storage

import (
	"github.com/coocood/badger"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/ldeng-ustc/tikv/kv/config"
	"github.com/ldeng-ustc/tikv/kv/storage"
	"github.com/ldeng-ustc/tikv/kv/util/engine_util"
)

// StandAloneStorage is an implementation of `Storage` for a single-node TinyKV instance. It does not
// communicate with other nodes and all data is stored locally.
type StandAloneStorage struct {
	conf config.Engine
	db   *badger.DB
}

func NewStandAloneStorage(conf *config.Config) *StandAloneStorage {
	return &StandAloneStorage{conf: conf.Engine}
}

func (s *StandAloneStorage) Start() error {
	db, err := engine_util.CreateDB(&s.conf)
	if err != nil {
		return err
	}
	s.db = db
	log.Info("standalone storage started", zap.String("path", s.conf.DBPath))
	return nil
}

func (s *StandAloneStorage) Stop() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return errors.Trace(err)
}

func (s *StandAloneStorage) Reader() (storage.StorageReader, error) {
	if s.db == nil {
		return nil, errors.New("standalone storage is not started")
	}
	return NewBadgerReader(s.db.NewTransaction(false)), nil
}

func (s *StandAloneStorage) Write(batch []storage.Modify) error {
	if s.db == nil {
		return errors.New("standalone storage is not started")
	}
	wb := new(engine_util.WriteBatch)
	for _, m := range batch {
		switch data := m.Data.(type) {
		case storage.Put:
			wb.SetCF(data.Cf, data.Key, data.Value)
		case storage.Delete:
			wb.DeleteCF(data.Cf, data.Key)
		}
	}
	if err := wb.WriteToDB(s.db); err != nil {
		log.Error("standalone storage write failed", zap.Int("entries", wb.Len()), zap.Int("bytes", wb.Size()), zap.Error(err))
		return err
	}
	return nil
}
