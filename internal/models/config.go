/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import "time"

// Config represents the application configuration
type Config struct {
	Database    DatabaseConfig
	Server      ServerConfig
	Expiry      ExpiryConfig
	Notify      NotifyConfig
	ProgramFile string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	BusyTimeout     time.Duration
}

// ServerConfig holds HTTP transport settings
type ServerConfig struct {
	ListenAddr      string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MetricsEnabled  bool
	Auth            AuthConfig
}

// AuthConfig holds the bearer token and webhook signing secrets
type AuthConfig struct {
	JWTSecret     string
	JWTIssuer     string
	TokenTTL      time.Duration
	WebhookSecret string
}

// ExpiryConfig holds the expiry sweep schedule
type ExpiryConfig struct {
	Enabled       bool
	SweepInterval time.Duration
}

// NotifyConfig selects the notification sink
type NotifyConfig struct {
	AMQPURL    string
	Exchange   string
	RoutingKey string
}
