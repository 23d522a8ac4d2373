package connection

import (
	"context"
	"fmt"

	"civicvoice/config"
	"civicvoice/logger"
	"civicvoice/store"

	gormLogger "gorm.io/gorm/logger"
)

// DBConnection opens the complaint store selected by cfg.StoreDriver. The
// returned Firebase is nil for SQL drivers unless media or notifications
// need it.
func DBConnection(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.Store, *Firebase, error) {
	needFirebase := cfg.StoreDriver == "firestore" || cfg.StorageBucket != "" || cfg.FirebaseCredentials != ""

	var fb *Firebase
	if needFirebase {
		var err error
		fb, err = FBConnection(ctx, cfg, cfg.StoreDriver == "firestore")
		if err != nil {
			return nil, nil, err
		}
	}

	if cfg.StoreDriver == "firestore" {
		log.Info("using firestore store", "project", cfg.FirebaseProjectID)
		return store.NewFirestoreStore(fb.Firestore), fb, nil
	}

	level := gormLogger.Warn
	if !cfg.IsProduction() {
		level = gormLogger.Info
	}
	db, err := store.OpenGorm(cfg.StoreDriver, cfg.DatabaseDSN, level)
	if err != nil {
		if fb != nil {
			fb.Close()
		}
		return nil, nil, err
	}
	st, err := store.NewGormStore(db)
	if err != nil {
		if fb != nil {
			fb.Close()
		}
		return nil, nil, fmt.Errorf("migrate %s store: %w", cfg.StoreDriver, err)
	}
	log.Info("using sql store", "driver", cfg.StoreDriver)
	return st, fb, nil
}
