// Package repository define las entidades del dominio y las interfaces de
// acceso a datos. Los drivers concretos viven en internal/store.
package repository
