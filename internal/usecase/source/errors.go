package source

// Errors are the sentinels from newsbot/internal/domain/entity
// (entity.ErrNotFound, entity.ErrValidationFailed); the source use case
// does not define its own.
