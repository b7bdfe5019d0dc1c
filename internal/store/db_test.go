package store_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dcm-project/policy-sdk/internal/config"
	"github.com/dcm-project/policy-sdk/internal/store"
	"github.com/dcm-project/policy-sdk/internal/store/model"
)

var _ = Describe("InitDB", func() {
	It("initializes and migrates a SQLite database", func() {
		cfg := &config.Config{
			Database: &config.DBConfig{
				Type: "sqlite",
				Name: ":memory:",
			},
		}

		db, err := store.InitDB(cfg)

		Expect(err).NotTo(HaveOccurred())
		Expect(db).NotTo(BeNil())
		Expect(db.Migrator().HasTable(&model.Policy{})).To(BeTrue())
		Expect(db.Migrator().HasTable(&model.PolicyRule{})).To(BeTrue())

		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
})
