package deploy

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"barrage/internal/config"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	AppLabel          = "barrage"
	ConfigMapName     = "barrage-config"
	ConfigMapKey      = "traffic.yaml"
	ConfigMapFile     = "configmap.yaml"
	ConfigMountPath   = "/etc/barrage"
	RestartAnnotation = "barrage.io/restartedAt"

	configVolume  = "config-volume"
	containerName = "barrage"
)

// WorkerDeployment builds the Deployment that runs task index i.
func WorkerDeployment(dep *config.Deployment, task config.Task, i int, now time.Time) Deployment {
	name := task.DisplayName(i)
	image := dep.Image
	if image == "" {
		image = config.DefaultImage
	}

	labels := func() map[string]string {
		return map[string]string{"app": AppLabel, "task": name}
	}
	resources := func() map[string]string {
		return map[string]string{"cpu": dep.CPU, "memory": dep.Mem}
	}

	return Deployment{
		APIVersion: "apps/v1",
		Kind:       "Deployment",
		Metadata: ObjectMeta{
			Name:      name,
			Namespace: dep.Namespace,
			Labels:    labels(),
		},
		Spec: DeploymentSpec{
			Replicas: dep.Instance,
			Selector: LabelSelector{MatchLabels: labels()},
			Template: PodTemplateSpec{
				Metadata: ObjectMeta{
					Labels:      labels(),
					Annotations: map[string]string{RestartAnnotation: now.UTC().Format(time.RFC3339)},
				},
				Spec: PodSpec{
					Containers: []Container{{
						Name:            containerName,
						Image:           image,
						ImagePullPolicy: "Always",
						Command:         []string{"barrage"},
						Args: []string{
							"worker",
							"--task-index", strconv.Itoa(i),
							"--config", ConfigMountPath + "/" + ConfigMapKey,
						},
						Resources: ResourceRequirements{
							Limits:   resources(),
							Requests: resources(),
						},
						VolumeMounts: []VolumeMount{{Name: configVolume, MountPath: ConfigMountPath}},
					}},
					Volumes: []Volume{{
						Name:      configVolume,
						ConfigMap: &ConfigMapVolumeSource{Name: ConfigMapName},
					}},
				},
			},
		},
	}
}

// TrafficConfigMap carries the task list mounted by every worker.
func TrafficConfigMap(dep *config.Deployment, traffic *config.Traffic) (ConfigMap, error) {
	tasks, err := traffic.MarshalTasks()
	if err != nil {
		return ConfigMap{}, fmt.Errorf("rendering task list: %w", err)
	}
	return ConfigMap{
		APIVersion: "v1",
		Kind:       "ConfigMap",
		Metadata:   ObjectMeta{Name: ConfigMapName, Namespace: dep.Namespace},
		Data:       map[string]string{ConfigMapKey: string(tasks)},
	}, nil
}

// Generate writes <name>.yaml for every task plus configmap.yaml into dir,
// creating it if needed, and returns the written paths.
func Generate(dep *config.Deployment, traffic *config.Traffic, dir string, now time.Time, log *zap.Logger) ([]string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	written := make([]string, 0, len(traffic.Tasks)+1)
	seen := make(map[string]int, len(traffic.Tasks))
	for i, task := range traffic.Tasks {
		d := WorkerDeployment(dep, task, i, now)
		if prev, dup := seen[d.Metadata.Name]; dup {
			return written, fmt.Errorf("tasks %d and %d share the name %q", prev, i, d.Metadata.Name)
		}
		seen[d.Metadata.Name] = i

		path := filepath.Join(dir, d.Metadata.Name+".yaml")
		if err := writeYAML(path, d); err != nil {
			return written, err
		}
		written = append(written, path)
		log.Info("generated manifest", zap.Int("taskIndex", i), zap.String("name", d.Metadata.Name), zap.String("path", path))
	}

	cm, err := TrafficConfigMap(dep, traffic)
	if err != nil {
		return written, err
	}
	path := filepath.Join(dir, ConfigMapFile)
	if err := writeYAML(path, cm); err != nil {
		return written, err
	}
	written = append(written, path)
	log.Info("generated config map", zap.String("path", path))

	return written, nil
}

// Clear removes a generated directory. A missing directory is not an error.
func Clear(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing %s: %w", dir, err)
	}
	return nil
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
