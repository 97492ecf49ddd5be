package metadata

// 'metadata' 表中 key 列使用的键
const (
	// LastUsageSnapshotKey 存储最近一次把Redis计数快照到数据库的时间
	LastUsageSnapshotKey = "last_usage_snapshot_at"

	// SchemaVersionKey 存储迁移完成时的表结构版本
	SchemaVersionKey = "schema_version"
)
