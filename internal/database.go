package internal

import (
	"fmt"

	"LEX-PDFMAP/internal/config"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB(cfg *config.Config) error {
	dsn := cfg.Database.DSN()

	var err error
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := autoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	fmt.Println("Database connected and migrated successfully")
	return nil
}

// autoMigrate creates missing tables and columns. Existing data is never
// rewritten.
func autoMigrate() error {
	fmt.Println("Ensuring pdf_templates table exists...")
	result := DB.Exec(`
        CREATE TABLE IF NOT EXISTS pdf_templates (
            id varchar(191) PRIMARY KEY,
            name longtext NOT NULL,
            category varchar(191),
            tenant_id varchar(191),
            storage_path longtext NOT NULL,
            original_name longtext,
            file_size bigint,
            page_count int,
            created_at datetime(3) NULL,
            updated_at datetime(3) NULL,
            deleted_at datetime(3) NULL,
            INDEX idx_pdf_templates_category (category),
            INDEX idx_pdf_templates_tenant_id (tenant_id),
            INDEX idx_pdf_templates_deleted_at (deleted_at)
        )
    `)
	if result.Error != nil {
		return fmt.Errorf("failed to create pdf_templates table: %w", result.Error)
	}

	fmt.Println("Ensuring field_mappings table exists...")
	result = DB.Exec(`
        CREATE TABLE IF NOT EXISTS field_mappings (
            id varchar(191) PRIMARY KEY,
            template_id varchar(191) NOT NULL,
            field_key varchar(191) NOT NULL,
            page_number int NOT NULL,
            x_coordinate double NOT NULL,
            y_coordinate double NOT NULL,
            width double NULL,
            height double NULL,
            field_type varchar(16) DEFAULT 'text',
            font_size double NULL,
            created_at datetime(3) NULL,
            updated_at datetime(3) NULL,
            INDEX idx_field_mappings_template_id (template_id)
        )
    `)
	if result.Error != nil {
		return fmt.Errorf("failed to create field_mappings table: %w", result.Error)
	}

	// columns added after the first release
	ensureFieldMappingColumns := map[string]string{
		"trigger_value": "ALTER TABLE field_mappings ADD COLUMN trigger_value longtext NULL",
		"request_id":    "ALTER TABLE field_mappings ADD COLUMN request_id varchar(191) NULL, ADD INDEX idx_field_mappings_request_id (request_id)",
	}
	for column, stmt := range ensureFieldMappingColumns {
		if err := ensureColumn("field_mappings", column, stmt); err != nil {
			return err
		}
	}

	fmt.Println("Ensuring bundles tables exist...")
	result = DB.Exec(`
        CREATE TABLE IF NOT EXISTS bundles (
            id varchar(191) PRIMARY KEY,
            name longtext NOT NULL,
            tenant_id varchar(191),
            created_at datetime(3) NULL,
            updated_at datetime(3) NULL,
            deleted_at datetime(3) NULL,
            INDEX idx_bundles_tenant_id (tenant_id),
            INDEX idx_bundles_deleted_at (deleted_at)
        )
    `)
	if result.Error != nil {
		return fmt.Errorf("failed to create bundles table: %w", result.Error)
	}

	result = DB.Exec(`
        CREATE TABLE IF NOT EXISTS bundle_templates (
            id varchar(191) PRIMARY KEY,
            bundle_id varchar(191) NOT NULL,
            template_id varchar(191) NOT NULL,
            display_order int NOT NULL,
            INDEX idx_bundle_templates_bundle_id (bundle_id)
        )
    `)
	if result.Error != nil {
		return fmt.Errorf("failed to create bundle_templates table: %w", result.Error)
	}

	fmt.Println("Ensuring fill_runs table exists...")
	result = DB.Exec(`
        CREATE TABLE IF NOT EXISTS fill_runs (
            id varchar(36) PRIMARY KEY,
            kind varchar(16) NOT NULL,
            template_id varchar(191),
            bundle_id varchar(191),
            status varchar(16) NOT NULL,
            files int,
            failures int,
            error text,
            archive_path text,
            duration_ms bigint NOT NULL,
            created_at datetime(3) NULL,
            updated_at datetime(3) NULL,
            deleted_at datetime(3) NULL,
            INDEX idx_fill_runs_kind (kind),
            INDEX idx_fill_runs_template_id (template_id),
            INDEX idx_fill_runs_bundle_id (bundle_id),
            INDEX idx_fill_runs_created_at (created_at),
            INDEX idx_fill_runs_deleted_at (deleted_at)
        )
    `)
	if result.Error != nil {
		return fmt.Errorf("failed to create fill_runs table: %w", result.Error)
	}

	fmt.Println("Tables created/verified successfully")
	return nil
}

func ensureColumn(table, column, statement string) error {
	if DB.Migrator().HasColumn(table, column) {
		return nil
	}

	fmt.Printf("Adding missing column %s.%s...\n", table, column)
	if err := DB.Exec(statement).Error; err != nil {
		return fmt.Errorf("failed to add column %s.%s: %w", table, column, err)
	}

	return nil
}

func CloseDB() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
