// Package config загружает конфигурацию сервисов Itinera.
//
// Порядок источников (каждый следующий перекрывает предыдущий):
//  1. значения по умолчанию (Default)
//  2. YAML файл (путь из аргумента или ITINERA_CONFIG)
//  3. переменные окружения (в том числе из .env)
package config
