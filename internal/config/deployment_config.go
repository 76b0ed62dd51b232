package config

import "strings"

// DeploymentMode selects between a self hosted single tenant install and the multi tenant cloud.
type DeploymentMode string

const (
	SingleTenant DeploymentMode = "single-tenant"
	Cloud        DeploymentMode = "cloud"
)

func (m DeploymentMode) IsCloud() bool {
	return m == Cloud
}

type DeploymentConfig interface {
	GetDeploymentMode() DeploymentMode
}

type Deployment struct{}

var _ DeploymentConfig = Deployment{}

func (Deployment) GetDeploymentMode() DeploymentMode {
	if strings.EqualFold(GetEnv("DEPLOYMENT_MODE", ""), string(Cloud)) {
		return Cloud
	}
	return SingleTenant
}
